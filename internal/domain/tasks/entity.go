package tasks

import (
	"encoding/json"
	"time"
)

// TaskID is the opaque identifier assigned by the task backend.
type TaskID string

// Kind selects which remote analysis variant a task runs.
type Kind string

const (
	KindDesktop         Kind = "desktop"
	KindMobile          Kind = "mobile"
	KindDirectorySearch Kind = "directory_search"
)

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"

	// statusFailure is the wire synonym some callers send for StatusFailed.
	statusFailure Status = "failure"
)

// Normalize folds the "failure" synonym into StatusFailed.
func (s Status) Normalize() Status {
	if s == statusFailure {
		return StatusFailed
	}
	return s
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s.Normalize() {
	case StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Aggregate Root: Task
type Task struct {
	ID        TaskID          `json:"taskId"`
	Kind      Kind            `json:"kind"`
	URL       string          `json:"url,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Status    Status          `json:"status"`
	Results   json.RawMessage `json:"results,omitempty"`
	Message   string          `json:"message,omitempty"`
	Attempts  int             `json:"attempts"`
	NextRun   time.Time       `json:"nextRun"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Snapshot is the read-only view of a task returned by the status endpoint.
type Snapshot struct {
	TaskID  TaskID          `json:"taskId"`
	Status  Status          `json:"status"`
	URL     string          `json:"url,omitempty"`
	Results json.RawMessage `json:"results,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Snapshot returns the status view of t.
func (t *Task) Snapshot() Snapshot {
	return Snapshot{
		TaskID:  t.ID,
		Status:  t.Status,
		URL:     t.URL,
		Results: t.Results,
		Message: t.Message,
	}
}

// CreateResult is returned by the create endpoint.
type CreateResult struct {
	TaskID  TaskID    `json:"taskId"`
	Status  Status    `json:"status"`
	NextRun time.Time `json:"nextRun"`
}
