package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (and migrates) an SQLite task database. ":memory:" is
// accepted for tests; it pins the pool to one connection so every query
// sees the same database.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// migrate creates the database schema
func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS audit_tasks (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		url TEXT NOT NULL,
		user_id TEXT NOT NULL,
		params_json TEXT NOT NULL,
		status TEXT NOT NULL,
		results_json TEXT,
		message TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		next_run INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_tasks_due ON audit_tasks(status, next_run);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}
