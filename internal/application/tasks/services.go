package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/seo-aio-audit/internal/application"
	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

const (
	DefaultMaxAttempts    = 3
	DefaultRetryDelay     = 30 * time.Second
	DefaultProcessTimeout = 2 * time.Minute
	dueConcurrency        = 4
)

// Service implements the backend use-cases of the task API.
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Repo    domain.Repository
	Runners map[domain.Kind]domain.Runner
	Clock   application.Clock
	Logger  *slog.Logger

	MaxAttempts    int
	RetryDelay     time.Duration
	ProcessTimeout time.Duration
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

// Create persists a pending task that is due immediately.
func (s *Service) Create(ctx context.Context, p domain.Params) (domain.CreateResult, error) {
	if p == nil {
		return domain.CreateResult{}, fmt.Errorf("%w: params are required", domain.ErrInvalidParams)
	}
	if err := p.Validate(); err != nil {
		return domain.CreateResult{}, err
	}
	if _, ok := s.Runners[p.Kind()]; !ok {
		return domain.CreateResult{}, fmt.Errorf("%w: %s", domain.ErrNoRunner, p.Kind())
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return domain.CreateResult{}, fmt.Errorf("encode params: %w", err)
	}

	now := s.now()
	t := &domain.Task{
		ID:        domain.TaskID(fmt.Sprintf("%s-%s", uuid.New().String(), p.Kind())),
		Kind:      p.Kind(),
		URL:       p.TargetURL(),
		UserID:    userIDOf(p),
		Params:    raw,
		Status:    domain.StatusPending,
		NextRun:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Save(ctx, t); err != nil {
		return domain.CreateResult{}, fmt.Errorf("save task: %w", err)
	}

	s.log().Info("task created", "task_id", t.ID, "kind", t.Kind, "url", t.URL)
	return domain.CreateResult{TaskID: t.ID, Status: t.Status, NextRun: t.NextRun}, nil
}

// Status returns the current snapshot of a task.
func (s *Service) Status(ctx context.Context, id domain.TaskID) (domain.Snapshot, error) {
	t, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Dispatch processes a task in the background, detached from the caller.
func (s *Service) Dispatch(id domain.TaskID) {
	timeout := s.ProcessTimeout
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Process(ctx, id); err != nil {
			s.log().Error("background task processing failed", "task_id", id, "error", err)
		}
	}()
}

// Process claims a pending task, runs it and stores the outcome. A task
// that fails is rescheduled until MaxAttempts, then marked failed; that
// is not an error of Process itself.
func (s *Service) Process(ctx context.Context, id domain.TaskID) error {
	claimed, err := s.Repo.Claim(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("claim task: %w", err)
	}
	if !claimed {
		// either unknown or already picked up by someone else
		if _, err := s.Repo.Get(ctx, id); err != nil {
			return err
		}
		s.log().Debug("task not claimable", "task_id", id)
		return nil
	}

	t, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	logger := s.log().With("task_id", t.ID, "kind", t.Kind)

	// status updates must land even if the caller is gone
	saveCtx := context.WithoutCancel(ctx)

	params, err := domain.DecodeParams(t.Kind, t.Params)
	if err != nil {
		return s.fail(saveCtx, t, err, false)
	}
	runner, ok := s.Runners[t.Kind]
	if !ok {
		return s.fail(saveCtx, t, fmt.Errorf("%w: %s", domain.ErrNoRunner, t.Kind), false)
	}

	start := s.now()
	results, err := runner.Run(ctx, params)
	if err != nil {
		logger.Warn("task run failed", "attempt", t.Attempts+1, "error", err)
		return s.fail(saveCtx, t, err, true)
	}

	t.Status = domain.StatusSuccess
	t.Results = results
	t.Message = ""
	t.Attempts++
	t.UpdatedAt = s.now()
	if err := s.Repo.Save(saveCtx, t); err != nil {
		return fmt.Errorf("save task result: %w", err)
	}
	logger.Info("task finished", "duration_ms", s.now().Sub(start).Milliseconds())
	return nil
}

func (s *Service) fail(ctx context.Context, t *domain.Task, cause error, retryable bool) error {
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	delay := s.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	now := s.now()
	t.Attempts++
	t.UpdatedAt = now
	if retryable && t.Attempts < maxAttempts {
		t.Status = domain.StatusPending
		t.NextRun = now.Add(time.Duration(t.Attempts) * delay)
		t.Message = fmt.Sprintf("attempt %d failed: %v", t.Attempts, cause)
	} else {
		t.Status = domain.StatusFailed
		t.Message = cause.Error()
	}
	if err := s.Repo.Save(ctx, t); err != nil {
		return errors.Join(cause, fmt.Errorf("save task failure: %w", err))
	}
	return nil
}

// ProcessDue runs every pending task whose NextRun has passed. It returns
// how many tasks were attempted.
func (s *Service) ProcessDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}
	due, err := s.Repo.Due(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dueConcurrency)
	for _, t := range due {
		id := t.ID
		g.Go(func() error {
			return s.Process(gctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return len(due), err
	}
	return len(due), nil
}

func userIDOf(p domain.Params) string {
	switch v := p.(type) {
	case domain.PageSpeedParams:
		return v.UserID
	case domain.DirectorySearchParams:
		return v.UserID
	}
	return ""
}
