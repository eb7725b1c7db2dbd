package tasks

import (
	"context"
	"log/slog"
	"time"

	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// DefaultPollInterval is used when a Poller has no interval configured.
const DefaultPollInterval = 2 * time.Second

// Poller watches a task until it reaches a terminal status.
type Poller struct {
	Fetcher  domain.StatusFetcher
	Interval time.Duration
	Logger   *slog.Logger
}

// NewPoller returns a Poller querying f every interval.
func NewPoller(f domain.StatusFetcher, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{Fetcher: f, Interval: interval, Logger: logger}
}

// PollUntilComplete queries the task status at a fixed interval and calls
// onUpdate with every response, terminal or not. A task that ends failed
// (or with the "failure" synonym) resolves normally with StatusFailed;
// only transport errors are returned, as *PollingTransportError. When ctx
// is cancelled polling stops, onUpdate is not called again and ctx.Err()
// is returned.
func (p *Poller) PollUntilComplete(ctx context.Context, id domain.TaskID, onUpdate func(domain.Snapshot)) (domain.Snapshot, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for polls := 1; ; polls++ {
		snap, err := p.Fetcher.Status(ctx, id)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Snapshot{}, ctxErr
		}
		if err != nil {
			return domain.Snapshot{}, &domain.PollingTransportError{TaskID: id, Err: err}
		}

		if snap.TaskID == "" {
			snap.TaskID = id
		}
		snap.Status = snap.Status.Normalize()
		if snap.Status == domain.StatusFailed && snap.Message == "" {
			snap.Message = "task failed"
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.Status.IsTerminal() {
			if p.Logger != nil {
				p.Logger.Debug("task settled", "task_id", id, "status", snap.Status, "polls", polls)
			}
			return snap, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Snapshot{}, ctx.Err()
		case <-timer.C:
		}
	}
}
