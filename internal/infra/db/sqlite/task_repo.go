package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// TaskRepository stores tasks in SQLite. Times are kept as unix
// milliseconds so due-ness is a plain integer comparison.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, kind, url, user_id, params_json, status, results_json, message, attempts, next_run, created_at, updated_at`

func (r *TaskRepository) Save(ctx context.Context, t *domain.Task) error {
	params := string(t.Params)
	if params == "" {
		params = "{}"
	}
	var results sql.NullString
	if len(t.Results) > 0 {
		results = sql.NullString{String: string(t.Results), Valid: true}
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			results_json = excluded.results_json,
			message = excluded.message,
			attempts = excluded.attempts,
			next_run = excluded.next_run,
			updated_at = excluded.updated_at
	`, string(t.ID), string(t.Kind), t.URL, t.UserID, params,
		string(t.Status), results, t.Message, t.Attempts,
		t.NextRun.UnixMilli(), created.UnixMilli(), updated.UnixMilli())
	return err
}

func (r *TaskRepository) Get(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM audit_tasks WHERE id = ?`, string(id))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *TaskRepository) Claim(ctx context.Context, id domain.TaskID, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE audit_tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.StatusInProgress), now.UnixMilli(), string(id), string(domain.StatusPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *TaskRepository) Due(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM audit_tasks
		WHERE status = ? AND next_run <= ?
		ORDER BY next_run ASC
		LIMIT ?
	`, string(domain.StatusPending), now.UnixMilli(), limit)
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
		id, kind, status, params  string
		results                   sql.NullString
		nextRun, created, updated int64
		t                         domain.Task
	)
	if err := row.Scan(&id, &kind, &t.URL, &t.UserID, &params, &status, &results,
		&t.Message, &t.Attempts, &nextRun, &created, &updated); err != nil {
		return nil, err
	}
	t.ID = domain.TaskID(id)
	t.Kind = domain.Kind(kind)
	t.Status = domain.Status(status)
	t.Params = json.RawMessage(params)
	if results.Valid && results.String != "" {
		t.Results = json.RawMessage(results.String)
	}
	t.NextRun = time.UnixMilli(nextRun).UTC()
	t.CreatedAt = time.UnixMilli(created).UTC()
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	return &t, nil
}
