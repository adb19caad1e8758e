// Package sqlitetest opens migrated throwaway databases for tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"stockmaster/infrastructure/sqlite"
)

// Open returns a migrated database in t's temp dir, closed on cleanup.
func Open(t testing.TB) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// Write runs fn in a write transaction and fails the test on error.
func Write(t testing.TB, db *sqlite.DB, fn func(ctx context.Context, tx bun.Tx) error) {
	t.Helper()
	if err := db.WithWriteTx(context.Background(), fn); err != nil {
		t.Fatalf("write tx: %v", err)
	}
}

// Exec runs raw statements, e.g. fixtures.
func Exec(t testing.TB, db *sqlite.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.W.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
