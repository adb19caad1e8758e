package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the process-wide connection handle injected into every handler.
// All writes go through a single immediate-lock connection, so a
// read-modify-write inside WithWriteTx cannot interleave with another writer.
type DB struct {
	WriteSQL *sql.DB
	ReadSQL  *sql.DB
	W        *bun.DB
	R        *bun.DB
}

// Options tunes the read pool.
type Options struct {
	MaxReadConns    int
	ConnMaxLifetime time.Duration
}

var DefaultOptions = Options{
	MaxReadConns:    8,
	ConnMaxLifetime: 15 * time.Minute,
}

// OpenDB opens the database at path with DefaultOptions.
func OpenDB(path string) (*DB, error) {
	return OpenDBWithOptions(path, DefaultOptions)
}

// OpenDBWithOptions initializes sqlite handles for immediate writer tx and pooled reads.
func OpenDBWithOptions(path string, opts Options) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if opts.MaxReadConns <= 0 {
		opts.MaxReadConns = DefaultOptions.MaxReadConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = DefaultOptions.ConnMaxLifetime
	}

	writeDSN := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", path)
	readDSN := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_query_only=1", path)

	wsql, err := sql.Open("sqlite3", writeDSN)
	if err != nil {
		return nil, fmt.Errorf("open write db: %w", err)
	}
	wsql.SetMaxOpenConns(1)
	wsql.SetConnMaxLifetime(opts.ConnMaxLifetime)

	// The writer creates the file so the read pool never races a missing database.
	if err := wsql.Ping(); err != nil {
		wsql.Close()
		return nil, fmt.Errorf("ping write db: %w", err)
	}

	rsql, err := sql.Open("sqlite3", readDSN)
	if err != nil {
		wsql.Close()
		return nil, fmt.Errorf("open read db: %w", err)
	}
	rsql.SetMaxOpenConns(opts.MaxReadConns)
	rsql.SetConnMaxIdleTime(5 * time.Minute)
	rsql.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return &DB{
		WriteSQL: wsql,
		ReadSQL:  rsql,
		W:        bun.NewDB(wsql, sqlitedialect.New()),
		R:        bun.NewDB(rsql, sqlitedialect.New()),
	}, nil
}

// Close closes read and write handles.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	var first error
	if db.W != nil {
		if err := db.W.Close(); err != nil && first == nil {
			first = err
		}
	}
	if db.R != nil {
		if err := db.R.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
