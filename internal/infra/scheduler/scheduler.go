package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// DueProcessor is the part of the task service the sweep job needs.
type DueProcessor interface {
	ProcessDue(ctx context.Context, limit int) (int, error)
}

// Scheduler runs periodic jobs. A job still running when its next tick
// comes is skipped rather than stacked.
type Scheduler struct {
	cron       *cron.Cron
	logger     *slog.Logger
	jobTimeout time.Duration

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New creates a scheduler in the given timezone ("" means UTC).
func New(timezone string, logger *slog.Logger) (*Scheduler, error) {
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
		}
		loc = l
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{
		cron:       c,
		logger:     logger.With("component", "scheduler"),
		jobTimeout: 5 * time.Minute,
		jobs:       make(map[string]cron.EntryID),
	}, nil
}

// AddJob adds a job with a cron schedule, e.g. "*/5 * * * *" or "@every 5s".
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		s.run(ctx, name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entryID
	s.mu.Unlock()
	s.logger.Info("job added", "job", name, "schedule", schedule)
	return nil
}

// AddDueTasksJob sweeps pending tasks whose retry time has come.
func (s *Scheduler) AddDueTasksJob(schedule string, batch int, p DueProcessor) error {
	return s.AddJob("process_due_tasks", schedule, func(ctx context.Context) error {
		n, err := p.ProcessDue(ctx, batch)
		if n > 0 {
			s.logger.Debug("due tasks processed", "count", n)
		}
		return err
	})
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) {
	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("job completed", "job", name, "duration", time.Since(start).String())
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("job removed", "job", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler; the returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")
	return s.cron.Stop()
}

// RunNow executes a job immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	s.logger.Info("running job now", "job", name)
	return job(ctx)
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		if !entry.Valid() {
			continue
		}
		infos = append(infos, JobInfo{Name: name, NextRun: entry.Next, LastRun: entry.Prev})
	}
	return infos
}
