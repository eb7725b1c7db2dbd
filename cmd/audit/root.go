package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/seo-aio-audit/internal/bootstrap"
	"github.com/bryanwahyu/seo-aio-audit/internal/config"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/taskclient"
	"github.com/bryanwahyu/seo-aio-audit/internal/platform/logger"
)

var version = "dev"

// app carries what the subcommands share once the root has loaded the config.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *slog.Logger

	// reader overrides the page reader, nil means the SSRF-safe default.
	reader audit.PageReader
}

func newRootCommand() *cobra.Command {
	return (&app{}).rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "SEO and AI-optimization audits from the command line",
		Long: `audit scores a web page for technical SEO (PageSpeed desktop and mobile
tasks run by the task backend) and for AI optimization (content clarity,
structure and natural language), and combines them into one overall score.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $CONFIG_PATH or config.yaml)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path := a.configPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = "config.yaml"
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg

		level := cfg.Log.Level
		if a.debug {
			level = "DEBUG"
		}
		a.logger = logger.NewText(cmd.ErrOrStderr(), level)
		return nil
	}

	cmd.AddCommand(a.analyzeCommand())
	cmd.AddCommand(a.taskCommand())
	cmd.AddCommand(a.cacheCommand())

	return cmd
}

func (a *app) taskClient() *taskclient.Client {
	return taskclient.New(a.cfg.Backend.URL, a.cfg.Backend.PublicKey, nil)
}

// cacheKV keeps the CLI cache on disk unless MinIO is configured; an
// in-memory cache would not outlive the process.
func (a *app) cacheKV(ctx context.Context) (audit.KV, error) {
	backend := "file"
	if a.cfg.Cache.Backend == "minio" {
		backend = "minio"
	}
	return bootstrap.KV(ctx, a.cfg, backend)
}

func execute() error {
	return newRootCommand().Execute()
}
