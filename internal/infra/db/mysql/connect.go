package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the task table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	const q = `
CREATE TABLE IF NOT EXISTS audit_tasks (
  id           VARCHAR(96)  NOT NULL PRIMARY KEY,
  kind         VARCHAR(32)  NOT NULL,
  url          VARCHAR(2048) NOT NULL,
  user_id      VARCHAR(128) NOT NULL,
  params_json  JSON         NOT NULL,
  status       VARCHAR(16)  NOT NULL,
  results_json JSON         NULL,
  message      TEXT         NOT NULL,
  attempts     INT          NOT NULL DEFAULT 0,
  next_run     DATETIME(3)  NOT NULL,
  created_at   DATETIME(3)  NOT NULL,
  updated_at   DATETIME(3)  NOT NULL,
  INDEX idx_audit_tasks_due (status, next_run)
);`
	_, err := db.ExecContext(ctx, q)
	return err
}
