package tasks

import (
	"context"
	"encoding/json"
	"time"
)

// Repository port (persistence of tasks on the backend side)
type Repository interface {
	Save(ctx context.Context, t *Task) error
	Get(ctx context.Context, id TaskID) (*Task, error)
	// Claim atomically moves a pending task to in_progress. It reports
	// false when another worker already holds the task.
	Claim(ctx context.Context, id TaskID, now time.Time) (bool, error)
	// Due lists pending tasks whose NextRun is not after now.
	Due(ctx context.Context, now time.Time, limit int) ([]*Task, error)
}

// Runner executes one kind of remote analysis and returns its results payload.
type Runner interface {
	Run(ctx context.Context, p Params) (json.RawMessage, error)
}

// Submitter creates remote tasks.
type Submitter interface {
	CreateTask(ctx context.Context, p Params) (TaskID, error)
}

// StatusFetcher reads the current snapshot of a task.
type StatusFetcher interface {
	Status(ctx context.Context, id TaskID) (Snapshot, error)
}

// Client is the full consumer-side view of the task API.
type Client interface {
	Submitter
	StatusFetcher
}
