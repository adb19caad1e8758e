package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"
)

func TestApplyEmbeddedMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "embedded.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply embedded migrations: %v", err)
	}

	var count int64
	err = db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'products', 'movements', 'system_logs', 'categories', 'suppliers', 'sessions')`,
		).Scan(ctx, &count)
	})
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7 domain tables after embedded migrations, got %d", count)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}

	var applied int
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM schema_migrations WHERE name = '0001_init.sql'`).Scan(ctx, &applied)
	})
	if err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected init migration recorded once, got %d", applied)
	}
}
