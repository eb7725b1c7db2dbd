package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/platform/requestid"
)

func TestValidateURL(t *testing.T) {
	got, err := ValidateURL("  example.com/pricing ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pricing", got)

	for _, bad := range []string{"", "ftp://example.com", "http://localhost:8080", "http://127.0.0.1", "https://10.0.0.5", "http://[::1]/", "https://metadata.google.internal"} {
		_, err := ValidateURL(bad)
		assert.ErrorIs(t, err, tasks.ErrInvalidParams, bad)
	}
}

func TestValidateTaskID(t *testing.T) {
	assert.NoError(t, ValidateTaskID("0b6a9c3e-2f1d-4c8e-9a7b-1234567890ab-mobile"))
	assert.NoError(t, ValidateTaskID("0b6a9c3e-2f1d-4c8e-9a7b-1234567890ab-directory_search"))
	assert.Error(t, ValidateTaskID(""))
	assert.Error(t, ValidateTaskID("0b6a9c3e-2f1d-4c8e-9a7b-1234567890ab-tablet"))
	assert.Error(t, ValidateTaskID("'; DROP TABLE audit_tasks; --"))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("tab_42-a"))
	assert.Error(t, ValidateSessionID(""))
	assert.Error(t, ValidateSessionID("has space"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString(" a\x00b\x07c "))
}

func TestAPIKeyAuth(t *testing.T) {
	var client string
	h := APIKeyAuth(map[string]string{"dashboard": "pk_1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client = GetClientFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/tasks/status", nil)
	req.Header.Set("Authorization", "Bearer pk_1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard", client)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	h := APIKeyAuth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(0, 0)
	tb := newTokenBucket(2, 1, func() time.Time { return now })

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestRateLimit_PerClientIP(t *testing.T) {
	limiter := &RateLimiter{buckets: map[string]*TokenBucket{}, capacity: 1, refillRate: 1, now: time.Now}
	h := rateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/audits", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("1.2.3.4:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("1.2.3.4:2000"))
	assert.Equal(t, http.StatusOK, send("5.6.7.8:1000"))
}

func TestRateLimit_RetryAfterWithFastRefill(t *testing.T) {
	h := RateLimitMiddleware(1, 5)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var last *httptest.ResponseRecorder
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/v1/audits", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
}

func TestRequestIDAndLogging(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
}

func TestResponseWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("x"))
	rw.Flush()
	assert.True(t, rec.Flushed)
	assert.EqualValues(t, 1, rw.written)
}

func TestHealthHandler(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })
	down := CheckerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok, "cache": ok})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok, "cache": down})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["cache"].Message)
	assert.Equal(t, "healthy", body.Checks["db"].Status)
}
