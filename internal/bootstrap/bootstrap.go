// Package bootstrap turns a config into the adapters both binaries share.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	appaudit "github.com/bryanwahyu/seo-aio-audit/internal/application/audit"
	apptasks "github.com/bryanwahyu/seo-aio-audit/internal/application/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/config"
	domainai "github.com/bryanwahyu/seo-aio-audit/internal/domain/ai"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/ai/openai"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/seo-aio-audit/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/seo-aio-audit/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/seo-aio-audit/internal/infra/db/sqlite"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/directory"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/kv"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/pageinsight"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/pagespeed"
	miniostore "github.com/bryanwahyu/seo-aio-audit/internal/infra/storage"
)

// TaskStore opens the configured task database, migrates it and returns
// the repository on top of it.
func TaskStore(ctx context.Context, cfg *config.Config) (*sql.DB, tasks.Repository, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlitep.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		return db, sqlitep.NewTaskRepository(db), nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("mysql migrate: %w", err)
		}
		return db, mysqlp.NewTaskRepository(db), nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgresp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return db, postgresp.NewTaskRepository(db), nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// KV returns the key/value store behind the analysis cache.
func KV(ctx context.Context, cfg *config.Config, backend string) (audit.KV, error) {
	switch backend {
	case "memory":
		return kv.NewMemory(), nil
	case "file":
		return kv.NewFile(cfg.Cache.Dir), nil
	case "minio":
		m := cfg.Minio
		store, err := miniostore.New(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL, m.Prefix)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// Runners registers the task runners the backend can execute. The
// directory runner is only present when a Places key is configured.
func Runners(cfg *config.Config) map[tasks.Kind]tasks.Runner {
	ps := pagespeed.NewClient(cfg.PageSpeed.APIKey)
	if cfg.PageSpeed.BaseURL != "" {
		ps.BaseURL = cfg.PageSpeed.BaseURL
	}
	runners := map[tasks.Kind]tasks.Runner{
		tasks.KindDesktop: ps,
		tasks.KindMobile:  ps,
	}
	if cfg.Directory.APIKey != "" {
		dir := directory.NewClient(cfg.Directory.APIKey)
		if cfg.Directory.BaseURL != "" {
			dir.BaseURL = cfg.Directory.BaseURL
		}
		runners[tasks.KindDirectorySearch] = dir
	}
	return runners
}

// ContentAnalyzer uses OpenAI when a key is configured, falling back to
// the heuristic scorer on quota errors, and the heuristic alone otherwise.
func ContentAnalyzer(cfg *config.Config, logger *slog.Logger) domainai.Client {
	if cfg.OpenAI.APIKey == "" {
		logger.Info("openai key not set, using heuristic content analysis")
		return prompt.Heuristic{}
	}
	return openai.Fallback{
		Primary:   openai.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL),
		Secondary: prompt.Heuristic{},
	}
}

// Sources bundles what every orchestrator of a process shares.
type Sources struct {
	Tasks    tasks.Client
	Analyzer domainai.Client
	Reader   audit.PageReader
	KV       audit.KV
	// Presence enables the directory lookup.
	Presence bool
}

// Orchestrator builds an orchestrator whose cache lives in slot.
func Orchestrator(cfg *config.Config, src Sources, slot string, logger *slog.Logger) *appaudit.Orchestrator {
	poller := apptasks.NewPoller(src.Tasks, cfg.Poll.Interval, logger)
	reader := src.Reader
	if reader == nil {
		reader = pageinsight.NewReader()
	}

	deps := appaudit.Deps{
		SEO: &appaudit.TaskSEOSource{Tasks: src.Tasks, Poller: poller, UserID: cfg.Backend.UserID},
		AIO: &appaudit.ContentAIOSource{Reader: reader, Analyzer: src.Analyzer},
		Timeouts: appaudit.Timeouts{
			SEO:      cfg.Timeouts.SEO,
			AIO:      cfg.Timeouts.AIO,
			Presence: cfg.Timeouts.Presence,
		},
		Logger: logger,
	}
	if src.Presence {
		deps.Presence = &appaudit.TaskPresenceSource{Tasks: src.Tasks, Poller: poller, UserID: cfg.Backend.UserID}
	}
	if src.KV != nil {
		deps.Cache = appaudit.NewCache(src.KV, slot, cfg.Cache.TTL, nil, logger)
	}
	return appaudit.NewOrchestrator(deps)
}
