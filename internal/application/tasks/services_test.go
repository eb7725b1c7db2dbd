package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seo-aio-audit/internal/application"
	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/db/sqlite"
)

type runnerFunc func(ctx context.Context, p domain.Params) (json.RawMessage, error)

func (f runnerFunc) Run(ctx context.Context, p domain.Params) (json.RawMessage, error) {
	return f(ctx, p)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T, runner domain.Runner) (*Service, *testClock) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	return &Service{
		Repo:        sqlite.NewTaskRepository(db),
		Runners:     map[domain.Kind]domain.Runner{domain.KindDesktop: runner, domain.KindMobile: runner},
		Clock:       clock,
		MaxAttempts: 3,
		RetryDelay:  10 * time.Second,
	}, clock
}

var _ application.Clock = (*testClock)(nil)

func okRunner(context.Context, domain.Params) (json.RawMessage, error) {
	return json.RawMessage(`{"performanceScore":91}`), nil
}

func mobileParams(t *testing.T) domain.PageSpeedParams {
	t.Helper()
	p, err := domain.NewPageSpeedParams("example.com", domain.KindMobile, "u1")
	require.NoError(t, err)
	return p
}

var taskIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}-mobile$`)

func TestCreate(t *testing.T) {
	svc, clock := newService(t, runnerFunc(okRunner))
	ctx := context.Background()

	res, err := svc.Create(ctx, mobileParams(t))
	require.NoError(t, err)
	assert.Regexp(t, taskIDPattern, string(res.TaskID))
	assert.Equal(t, domain.StatusPending, res.Status)
	assert.True(t, res.NextRun.Equal(clock.Now()))

	snap, err := svc.Status(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, snap.Status)
	assert.Equal(t, "https://example.com", snap.URL)
}

func TestCreate_Rejects(t *testing.T) {
	svc, _ := newService(t, runnerFunc(okRunner))
	ctx := context.Background()

	_, err := svc.Create(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	_, err = svc.Create(ctx, domain.PageSpeedParams{URL: "https://example.com", Platform: "tablet"})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	dir, err := domain.NewDirectorySearchParams(domain.Business{Name: "Acme"}, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, dir)
	assert.ErrorIs(t, err, domain.ErrNoRunner)
}

func TestStatus_NotFound(t *testing.T) {
	svc, _ := newService(t, runnerFunc(okRunner))
	_, err := svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcess_Success(t *testing.T) {
	var got atomic.Value
	svc, _ := newService(t, runnerFunc(func(_ context.Context, p domain.Params) (json.RawMessage, error) {
		got.Store(p)
		return okRunner(context.Background(), p)
	}))
	ctx := context.Background()
	res, err := svc.Create(ctx, mobileParams(t))
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, res.TaskID))

	snap, err := svc.Status(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, snap.Status)
	assert.JSONEq(t, `{"performanceScore":91}`, string(snap.Results))
	assert.Equal(t, mobileParams(t), got.Load())

	task, err := svc.Repo.Get(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 1, task.Attempts)
}

func TestProcess_RetriesThenFails(t *testing.T) {
	var runs atomic.Int32
	svc, clock := newService(t, runnerFunc(func(context.Context, domain.Params) (json.RawMessage, error) {
		runs.Add(1)
		return nil, errors.New("pagespeed 500")
	}))
	ctx := context.Background()
	res, err := svc.Create(ctx, mobileParams(t))
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, res.TaskID))
	task, err := svc.Repo.Get(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.True(t, task.NextRun.Equal(clock.Now().Add(10*time.Second)), "linear backoff")
	assert.Contains(t, task.Message, "attempt 1 failed")

	clock.Advance(10 * time.Second)
	require.NoError(t, svc.Process(ctx, res.TaskID))
	task, err = svc.Repo.Get(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 2, task.Attempts)
	assert.True(t, task.NextRun.Equal(clock.Now().Add(20*time.Second)))

	clock.Advance(20 * time.Second)
	require.NoError(t, svc.Process(ctx, res.TaskID))
	snap, err := svc.Status(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, snap.Status)
	assert.Equal(t, "pagespeed 500", snap.Message)
	assert.EqualValues(t, 3, runs.Load())

	// terminal tasks are not claimable
	require.NoError(t, svc.Process(ctx, res.TaskID))
	assert.EqualValues(t, 3, runs.Load())
}

func TestProcess_UnknownTask(t *testing.T) {
	svc, _ := newService(t, runnerFunc(okRunner))
	err := svc.Process(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessDue(t *testing.T) {
	var runs atomic.Int32
	svc, clock := newService(t, runnerFunc(func(ctx context.Context, p domain.Params) (json.RawMessage, error) {
		runs.Add(1)
		return okRunner(ctx, p)
	}))
	ctx := context.Background()

	var ids []domain.TaskID
	for range 3 {
		res, err := svc.Create(ctx, mobileParams(t))
		require.NoError(t, err)
		ids = append(ids, res.TaskID)
	}
	// one task scheduled for later
	later, err := svc.Create(ctx, mobileParams(t))
	require.NoError(t, err)
	task, err := svc.Repo.Get(ctx, later.TaskID)
	require.NoError(t, err)
	task.NextRun = clock.Now().Add(time.Minute)
	require.NoError(t, svc.Repo.Save(ctx, task))

	n, err := svc.ProcessDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.EqualValues(t, 3, runs.Load())
	for _, id := range ids {
		snap, err := svc.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, snap.Status)
	}

	snap, err := svc.Status(ctx, later.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, snap.Status)
}

func TestDispatch(t *testing.T) {
	svc, _ := newService(t, runnerFunc(okRunner))
	ctx := context.Background()
	res, err := svc.Create(ctx, mobileParams(t))
	require.NoError(t, err)

	svc.Dispatch(res.TaskID)
	require.Eventually(t, func() bool {
		snap, err := svc.Status(ctx, res.TaskID)
		return err == nil && snap.Status == domain.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLocalClient(t *testing.T) {
	svc, _ := newService(t, runnerFunc(okRunner))
	client := LocalClient{Service: svc}
	ctx := context.Background()

	id, err := client.CreateTask(ctx, mobileParams(t))
	require.NoError(t, err)

	snap, err := NewPoller(client, 5*time.Millisecond, nil).PollUntilComplete(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, snap.Status)

	_, err = client.CreateTask(ctx, domain.PageSpeedParams{URL: "https://example.com", Platform: "tv"})
	var ce *domain.CreationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}
