package tasks

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a task ID is unknown to the backend.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidParams wraps every parameter validation failure.
	ErrInvalidParams = errors.New("invalid task params")
	// ErrNoRunner means the backend has nothing registered for a task kind.
	ErrNoRunner = errors.New("no runner for task kind")
)

// CreationError means the remote task could not be created.
type CreationError struct {
	Message string
	Err     error
}

func (e *CreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("create task: %s: %v", e.Message, e.Err)
	}
	return "create task: " + e.Message
}

func (e *CreationError) Unwrap() error { return e.Err }

// PollingTransportError is an unexpected failure while polling a task,
// as opposed to the task itself finishing with StatusFailed.
type PollingTransportError struct {
	TaskID TaskID
	Err    error
}

func (e *PollingTransportError) Error() string {
	return fmt.Sprintf("poll task %s: %v", e.TaskID, e.Err)
}

func (e *PollingTransportError) Unwrap() error { return e.Err }
