package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appaudit "github.com/bryanwahyu/seo-aio-audit/internal/application/audit"
	apptasks "github.com/bryanwahyu/seo-aio-audit/internal/application/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/db/sqlite"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/kv"
)

type runnerFunc func(ctx context.Context, p tasks.Params) (json.RawMessage, error)

func (f runnerFunc) Run(ctx context.Context, p tasks.Params) (json.RawMessage, error) { return f(ctx, p) }

type seoFunc func(ctx context.Context, url string) (*audit.SEOReport, error)

func (f seoFunc) AnalyzeSEO(ctx context.Context, url string) (*audit.SEOReport, error) {
	return f(ctx, url)
}

type aioFunc func(ctx context.Context, url string) (*audit.AIOReport, error)

func (f aioFunc) AnalyzeAIO(ctx context.Context, url string) (*audit.AIOReport, error) {
	return f(ctx, url)
}

func newTaskService(t *testing.T) *apptasks.Service {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ok := runnerFunc(func(context.Context, tasks.Params) (json.RawMessage, error) {
		return json.RawMessage(`{"seoScore":90}`), nil
	})
	return &apptasks.Service{
		Repo:    sqlite.NewTaskRepository(db),
		Runners: map[tasks.Kind]tasks.Runner{tasks.KindDesktop: ok, tasks.KindMobile: ok},
	}
}

func newSessions(seo audit.SEOSource, aio audit.AIOSource) *Sessions {
	store := kv.NewMemory()
	return NewSessions(func(id string) *appaudit.Orchestrator {
		return appaudit.NewOrchestrator(appaudit.Deps{
			SEO:   seo,
			AIO:   aio,
			Cache: appaudit.NewCache(store, appaudit.DefaultCacheSlot+"_"+id, 0, nil, nil),
		})
	}, 0)
}

func TestTaskEndpoints(t *testing.T) {
	svc := newTaskService(t)
	h := NewRouter(Options{Tasks: svc, APIKeys: map[string]string{"cli": "pk"}})

	body := bytes.NewBufferString(`{"url":"example.com","platform":"mobile"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks/create", body)
	req.Header.Set("Authorization", "Bearer pk")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created tasks.CreateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, tasks.StatusPending, created.Status)

	assert.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/v1/tasks/status?taskId="+string(created.TaskID), nil)
		req.Header.Set("Authorization", "Bearer pk")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		var snap tasks.Snapshot
		_ = json.Unmarshal(rec.Body.Bytes(), &snap)
		return rec.Code == http.StatusOK && snap.Status == tasks.StatusSuccess
	}, 2*time.Second, 20*time.Millisecond)
}

func TestTaskEndpoints_Errors(t *testing.T) {
	h := NewRouter(Options{Tasks: newTaskService(t)})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing platform", http.MethodPost, "/v1/tasks/create", `{"url":"example.com"}`, http.StatusBadRequest},
		{"private url", http.MethodPost, "/v1/tasks/create", `{"url":"http://127.0.0.1","platform":"mobile"}`, http.StatusBadRequest},
		{"no runner", http.MethodPost, "/v1/tasks/create", `{"taskKind":"directory_search","business":{"name":"Acme"}}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/v1/tasks/create", `{`, http.StatusBadRequest},
		{"bad task id", http.MethodGet, "/v1/tasks/status?taskId=nope", "", http.StatusBadRequest},
		{"unknown task", http.MethodGet, "/v1/tasks/status?taskId=0b6a9c3e-2f1d-4c8e-9a7b-1234567890ab-mobile", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var eb errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
			assert.NotEmpty(t, eb.Error)
		})
	}
}

func readLines(t *testing.T, rec *httptest.ResponseRecorder) []StreamLine {
	t.Helper()
	var lines []StreamLine
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		var l StreamLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	return lines
}

func postAudit(h http.Handler, session, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/audits", bytes.NewBufferString(body))
	req.Header.Set("X-Session-ID", session)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuditStream_PartialThenFinal(t *testing.T) {
	aioRelease := make(chan struct{})
	seo := seoFunc(func(context.Context, string) (*audit.SEOReport, error) {
		defer close(aioRelease)
		return &audit.SEOReport{Score: 82, PerformanceScore: 70}, nil
	})
	aio := aioFunc(func(ctx context.Context, _ string) (*audit.AIOReport, error) {
		<-aioRelease
		return &audit.AIOReport{Score: 55}, nil
	})
	h := NewRouter(Options{Sessions: newSessions(seo, aio)})

	rec := postAudit(h, "tab-1", `{"url":"example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	lines := readLines(t, rec)
	require.Len(t, lines, 2)
	assert.Equal(t, "partial", lines[0].Type)
	assert.True(t, lines[0].Result.Partial)
	assert.Equal(t, "final", lines[1].Type)
	assert.Equal(t, 68.3, lines[1].Result.OverallScore)
	assert.Equal(t, audit.StatusNeedsImprovement, lines[1].Result.OverallStatus)

	// second call on the same session is served from cache
	rec = postAudit(h, "tab-1", `{"url":"example.com"}`)
	lines = readLines(t, rec)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].FromCache)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/audits/cache", nil)
	req.Header.Set("X-Session-ID", "tab-1")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuditStream_CacheKeyIsSubmittedURL(t *testing.T) {
	var seoCalls atomic.Int32
	seo := seoFunc(func(_ context.Context, url string) (*audit.SEOReport, error) {
		seoCalls.Add(1)
		assert.Equal(t, "https://example.com", url)
		return &audit.SEOReport{Score: 82, PerformanceScore: 70}, nil
	})
	aio := aioFunc(func(context.Context, string) (*audit.AIOReport, error) {
		return &audit.AIOReport{Score: 55}, nil
	})
	h := NewRouter(Options{Sessions: newSessions(seo, aio)})

	lines := readLines(t, postAudit(h, "s1", `{"url":"example.com"}`))
	require.NotEmpty(t, lines)
	assert.Equal(t, "final", lines[len(lines)-1].Type)

	// same site, different spelling: a fresh run
	lines = readLines(t, postAudit(h, "s1", `{"url":"https://example.com"}`))
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.False(t, l.FromCache)
	}
	assert.EqualValues(t, 2, seoCalls.Load())

	// the original spelling is still cached
	lines = readLines(t, postAudit(h, "s1", `{"url":"example.com"}`))
	require.Len(t, lines, 1)
	assert.True(t, lines[0].FromCache)
	assert.EqualValues(t, 2, seoCalls.Load())
}

func TestAuditStream_TotalFailure(t *testing.T) {
	fail := errors.New("upstream down")
	seo := seoFunc(func(context.Context, string) (*audit.SEOReport, error) { return nil, fail })
	aio := aioFunc(func(context.Context, string) (*audit.AIOReport, error) { return nil, fail })
	h := NewRouter(Options{Sessions: newSessions(seo, aio)})

	rec := postAudit(h, "tab-2", `{"url":"example.com"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var eb errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
	assert.Contains(t, eb.Error, "no real data")
	assert.NotEmpty(t, eb.Remediation)
}

func TestAuditStream_RejectsBadInput(t *testing.T) {
	h := NewRouter(Options{Sessions: newSessions(nil, nil)})

	assert.Equal(t, http.StatusBadRequest, postAudit(h, "tab 3", `{"url":"example.com"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postAudit(h, "tab-3", `{"url":"http://localhost"}`).Code)
}

func TestAuditStream_RunInProgressConflicts(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	seo := seoFunc(func(ctx context.Context, _ string) (*audit.SEOReport, error) {
		close(entered)
		<-release
		return &audit.SEOReport{Score: 80}, nil
	})
	aio := aioFunc(func(ctx context.Context, _ string) (*audit.AIOReport, error) {
		<-release
		return &audit.AIOReport{Score: 80}, nil
	})
	h := NewRouter(Options{Sessions: newSessions(seo, aio)})

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- postAudit(h, "tab-4", `{"url":"example.com"}`) }()
	<-entered

	assert.Equal(t, http.StatusConflict, postAudit(h, "tab-4", `{"url":"example.com"}`).Code)
	close(release)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := NewRouter(Options{APIKeys: map[string]string{"cli": "pk"}})
	for _, path := range []string{"/health", "/readyz", "/livez"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
