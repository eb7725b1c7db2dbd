package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/seo-aio-audit/internal/application"
	appaudit "github.com/bryanwahyu/seo-aio-audit/internal/application/audit"
	apptasks "github.com/bryanwahyu/seo-aio-audit/internal/application/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/bootstrap"
	"github.com/bryanwahyu/seo-aio-audit/internal/config"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/httpserver"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/pageinsight"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/scheduler"
	"github.com/bryanwahyu/seo-aio-audit/internal/middleware"
	"github.com/bryanwahyu/seo-aio-audit/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	log := logger.New(cfg.Log.Level)
	slog.SetDefault(log)

	ctx := context.Background()

	// task database
	db, repo, err := bootstrap.TaskStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// init service
	svc := &apptasks.Service{
		Repo:        repo,
		Runners:     bootstrap.Runners(cfg),
		Clock:       application.SystemClock{},
		Logger:      log.With("component", "tasks"),
		MaxAttempts: cfg.Tasks.MaxAttempts,
		RetryDelay:  cfg.Tasks.RetryDelay,
	}

	// retries and tasks created while the process was down
	sched, err := scheduler.New(cfg.Scheduler.Timezone, log)
	if err != nil {
		return err
	}
	if err := sched.AddDueTasksJob(cfg.Scheduler.Schedule, cfg.Scheduler.Batch, svc); err != nil {
		return err
	}
	sched.Start()

	// analysis cache
	store, err := bootstrap.KV(ctx, cfg, cfg.Cache.Backend)
	if err != nil {
		return err
	}

	// orchestrators run tasks in process
	src := bootstrap.Sources{
		Tasks:    apptasks.LocalClient{Service: svc},
		Analyzer: bootstrap.ContentAnalyzer(cfg, log),
		Reader:   pageinsight.NewReader(),
		KV:       store,
		Presence: cfg.Directory.APIKey != "",
	}
	sessions := httpserver.NewSessions(func(id string) *appaudit.Orchestrator {
		return bootstrap.Orchestrator(cfg, src, appaudit.DefaultCacheSlot+"_"+id, log.With("session", id))
	}, 0)

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Options{
		Tasks:        svc,
		Sessions:     sessions,
		Logger:       log,
		APIKeys:      cfg.Server.APIKeys,
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateCapacity: cfg.Server.RateLimit.Capacity,
		RateRefill:   cfg.Server.RateLimit.RefillPerSecond,
		HealthCheckers: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
			"cache": middleware.CheckerFunc(func(ctx context.Context) error {
				_, _, err := store.Get(ctx, appaudit.DefaultCacheSlot+"_health")
				return err
			}),
		},
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// audit streams stay open until every source settles
		WriteTimeout: cfg.Timeouts.SEO + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr, "db", cfg.Database.Driver, "cache", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		<-sched.Stop().Done()
		return fmt.Errorf("server: %w", err)
	}
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown error", "error", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-ctx2.Done():
	}
	return nil
}
