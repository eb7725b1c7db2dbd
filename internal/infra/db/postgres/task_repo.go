package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

type TaskRepository struct{ db *sql.DB }

func NewTaskRepository(db *sql.DB) *TaskRepository { return &TaskRepository{db: db} }

const taskColumns = `id, kind, url, user_id, params_json, status, results_json, message, attempts, next_run, created_at, updated_at`

// Save insert/update Task record
func (r *TaskRepository) Save(ctx context.Context, t *domain.Task) error {
	const q = `
INSERT INTO audit_tasks (` + taskColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 results_json = EXCLUDED.results_json,
 message = EXCLUDED.message,
 attempts = EXCLUDED.attempts,
 next_run = EXCLUDED.next_run,
 updated_at = EXCLUDED.updated_at;`

	params := string(t.Params)
	if params == "" {
		params = "{}"
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, q,
		t.ID, stringOrDash(string(t.Kind)), t.URL, t.UserID, params,
		stringOrDash(string(t.Status)), nullJSON(t.Results), t.Message, t.Attempts,
		t.NextRun, created, updated,
	)
	return err
}

// Get by ID
func (r *TaskRepository) Get(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM audit_tasks WHERE id=$1 LIMIT 1;`
	t, err := scanTask(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

// Claim moves a pending task to in_progress
func (r *TaskRepository) Claim(ctx context.Context, id domain.TaskID, now time.Time) (bool, error) {
	const q = `UPDATE audit_tasks SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4;`
	res, err := r.db.ExecContext(ctx, q, domain.StatusInProgress, now, id, domain.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Due lists pending tasks ready to run
func (r *TaskRepository) Due(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT ` + taskColumns + `
FROM audit_tasks
WHERE status=$1 AND next_run <= $2
ORDER BY next_run ASC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, domain.StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t       domain.Task
		params  string
		results sql.NullString
	)
	if err := row.Scan(
		&t.ID, &t.Kind, &t.URL, &t.UserID, &params,
		&t.Status, &results, &t.Message, &t.Attempts,
		&t.NextRun, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Params = []byte(params)
	t.Results = rawJSON(results)
	return &t, nil
}
