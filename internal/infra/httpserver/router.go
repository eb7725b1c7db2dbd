package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	apptasks "github.com/bryanwahyu/seo-aio-audit/internal/application/tasks"
	domainai "github.com/bryanwahyu/seo-aio-audit/internal/domain/ai"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/middleware"
)

// Options wires the router.
type Options struct {
	Tasks    *apptasks.Service
	Sessions *Sessions
	Logger   *slog.Logger

	APIKeys        map[string]string
	CORSOrigins    []string
	RateCapacity   int
	RateRefill     int
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	tasks    *apptasks.Service
	sessions *Sessions
	logger   *slog.Logger
}

func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{tasks: opts.Tasks, sessions: opts.Sessions, logger: logger}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Session-ID", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateCapacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(opts.RateCapacity, max(1, opts.RateRefill)))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		if r.tasks != nil {
			rt.Post("/tasks/create", r.wrap(r.handleCreateTask))
			rt.Get("/tasks/status", r.wrap(r.handleTaskStatus))
			rt.Post("/tasks/process", r.wrap(r.handleProcessTask))
		}
		if r.sessions != nil {
			rt.Post("/audits", r.wrap(r.handleAudit))
			rt.Delete("/audits/cache", r.wrap(r.handleClearCache))
			rt.Get("/audits/state", r.wrap(r.handleAuditState))
		}
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorResponse struct {
	Error       string   `json:"error"`
	Remediation []string `json:"remediation,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, body := r.mapError(err)
			if status >= http.StatusInternalServerError {
				r.logger.Error("request failed", "path", req.URL.Path, "error", err)
			}
			writeJSON(w, status, body)
		}
	}
}

func (r *Router) mapError(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error()}
	var (
		noData *audit.NoUsableDataError
		ce     *tasks.CreationError
		pe     *tasks.PollingTransportError
	)
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, tasks.ErrInvalidParams), errors.Is(err, tasks.ErrNoRunner):
		return http.StatusBadRequest, body
	case errors.Is(err, audit.ErrRunInProgress):
		return http.StatusConflict, body
	case errors.Is(err, domainai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorResponse{Error: "ai quota exceeded"}
	case errors.As(err, &noData):
		body.Remediation = noData.Remediation()
		return http.StatusBadGateway, body
	case errors.As(err, &ce), errors.As(err, &pe):
		return http.StatusBadGateway, body
	}
	return http.StatusInternalServerError, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /v1/tasks/create
func (r *Router) handleCreateTask(w http.ResponseWriter, req *http.Request) error {
	var body tasks.CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20)).Decode(&body); err != nil {
		return errors.Join(tasks.ErrInvalidParams, err)
	}
	if body.URL != "" {
		u, err := middleware.ValidateURL(body.URL)
		if err != nil {
			return err
		}
		body.URL = u
	}
	p, err := body.Params()
	if err != nil {
		return err
	}

	res, err := r.tasks.Create(req.Context(), p)
	if err != nil {
		return err
	}
	middleware.TaskCreated()

	// processing continues in background, the client polls status
	r.tasks.Dispatch(res.TaskID)

	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/tasks/status?taskId=
func (r *Router) handleTaskStatus(w http.ResponseWriter, req *http.Request) error {
	id := req.URL.Query().Get("taskId")
	if err := middleware.ValidateTaskID(id); err != nil {
		return err
	}
	snap, err := r.tasks.Status(req.Context(), tasks.TaskID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, snap)
	return nil
}

// POST /v1/tasks/process
// Body: {"taskId": "<id>"}
// Runs the task synchronously; used by external workers and for retries.
func (r *Router) handleProcessTask(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		TaskID string `json:"taskId"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20)).Decode(&body); err != nil {
		return errors.Join(tasks.ErrInvalidParams, err)
	}
	if err := middleware.ValidateTaskID(body.TaskID); err != nil {
		return err
	}
	id := tasks.TaskID(body.TaskID)
	if err := r.tasks.Process(req.Context(), id); err != nil {
		return err
	}
	snap, err := r.tasks.Status(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, snap)
	return nil
}

// StreamLine is one NDJSON line of an audit response.
type StreamLine struct {
	Type        string                `json:"type"` // partial | final | error
	Result      *audit.AnalysisResult `json:"result,omitempty"`
	FromCache   bool                  `json:"fromCache,omitempty"`
	Failures    map[string]string     `json:"failures,omitempty"`
	Error       string                `json:"error,omitempty"`
	Remediation []string              `json:"remediation,omitempty"`
}

func sessionID(req *http.Request) (string, error) {
	id := req.Header.Get("X-Session-ID")
	if id == "" {
		id = "default"
	}
	return id, middleware.ValidateSessionID(id)
}

// POST /v1/audits
// Body: {"url": "...", "reanalyze": false}
// Streams the partial and the final result as NDJSON.
func (r *Router) handleAudit(w http.ResponseWriter, req *http.Request) error {
	sid, err := sessionID(req)
	if err != nil {
		return err
	}
	var body struct {
		URL       string `json:"url"`
		Reanalyze bool   `json:"reanalyze"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20)).Decode(&body); err != nil {
		return errors.Join(tasks.ErrInvalidParams, err)
	}
	// the cache is keyed by the URL exactly as submitted
	if _, err := middleware.ValidateURL(body.URL); err != nil {
		return err
	}

	orch := r.sessions.Get(sid)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started, cached := false, false

	write := func(line StreamLine) {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		_ = enc.Encode(line)
		if flusher != nil {
			flusher.Flush()
		}
	}
	onUpdate := func(u audit.Update) {
		res := u.Result
		cached = cached || u.FromCache
		line := StreamLine{Type: "partial", Result: &res, FromCache: u.FromCache}
		if u.Final {
			line.Type = "final"
			line.Failures = res.Failures()
		}
		write(line)
	}

	analyze := orch.Analyze
	if body.Reanalyze {
		analyze = orch.Reanalyze
	}

	middleware.AuditStarted()
	_, err = analyze(req.Context(), body.URL, onUpdate)
	middleware.AuditFinished(err != nil, cached)

	if err == nil {
		return nil
	}
	if !started {
		return err
	}
	// headers are gone, report the failure in-stream
	_, eb := r.mapError(err)
	write(StreamLine{Type: "error", Error: eb.Error, Remediation: eb.Remediation})
	return nil
}

// DELETE /v1/audits/cache
func (r *Router) handleClearCache(w http.ResponseWriter, req *http.Request) error {
	sid, err := sessionID(req)
	if err != nil {
		return err
	}
	r.sessions.Get(sid).ClearCache(req.Context())
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/audits/state
func (r *Router) handleAuditState(w http.ResponseWriter, req *http.Request) error {
	sid, err := sessionID(req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session": sid,
		"state":   r.sessions.Get(sid).State().String(),
	})
	return nil
}
