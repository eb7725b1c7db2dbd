package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProcessor struct {
	calls atomic.Int32
	limit atomic.Int32
}

func (c *countingProcessor) ProcessDue(_ context.Context, limit int) (int, error) {
	c.calls.Add(1)
	c.limit.Store(int32(limit))
	return 0, nil
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)

	err = s.AddJob("bad", "not a schedule", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.ListJobs())
}

func TestNew_InvalidTimezone(t *testing.T) {
	_, err := New("Mars/Olympus", nil)
	assert.Error(t, err)
}

func TestDueTasksJob_Runs(t *testing.T) {
	s, err := New("UTC", nil)
	require.NoError(t, err)

	p := &countingProcessor{}
	require.NoError(t, s.AddDueTasksJob("@every 1s", 7, p))

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "process_due_tasks", jobs[0].Name)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	assert.EqualValues(t, 7, p.limit.Load())
}

func TestRemoveJob(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)
	require.NoError(t, s.AddJob("x", "@every 1h", func(context.Context) error { return nil }))

	s.RemoveJob("x")
	assert.Empty(t, s.ListJobs())
}

func TestRunNow(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.RunNow(context.Background(), "x", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
