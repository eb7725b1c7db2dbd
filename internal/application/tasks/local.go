package tasks

import (
	"context"

	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// LocalClient serves the consumer-side task port straight from a Service,
// for orchestrators running inside the API process.
type LocalClient struct {
	Service *Service
}

func (c LocalClient) CreateTask(ctx context.Context, p domain.Params) (domain.TaskID, error) {
	res, err := c.Service.Create(ctx, p)
	if err != nil {
		return "", &domain.CreationError{Message: err.Error(), Err: err}
	}
	c.Service.Dispatch(res.TaskID)
	return res.TaskID, nil
}

func (c LocalClient) Status(ctx context.Context, id domain.TaskID) (domain.Snapshot, error) {
	return c.Service.Status(ctx, id)
}
