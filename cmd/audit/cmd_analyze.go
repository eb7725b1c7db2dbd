package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	appaudit "github.com/bryanwahyu/seo-aio-audit/internal/application/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/bootstrap"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

func (a *app) analyzeCommand() *cobra.Command {
	var (
		reanalyze bool
		asJSON    bool
		presence  bool
		cacheDir  string
	)
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a URL",
		Long: `Analyze a URL for SEO and AI optimization.

A result younger than the cache TTL is printed straight from the cache.
Otherwise the SEO tasks are submitted to the task backend while the page
content is analyzed locally; a partial result is printed as soon as the
first analysis completes, then the final one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cacheDir != "" {
				a.cfg.Cache.Dir = cacheDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			kv, err := a.cacheKV(ctx)
			if err != nil {
				return err
			}
			orch := bootstrap.Orchestrator(a.cfg, bootstrap.Sources{
				Tasks:    a.taskClient(),
				Analyzer: bootstrap.ContentAnalyzer(a.cfg, a.logger),
				Reader:   a.reader,
				KV:       kv,
				Presence: presence,
			}, appaudit.DefaultCacheSlot, a.logger)

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			onUpdate := func(u audit.Update) {
				if asJSON {
					_ = enc.Encode(u)
					return
				}
				printUpdate(out, u)
			}

			run := orch.Analyze
			if reanalyze {
				run = orch.Reanalyze
			}
			_, err = run(ctx, args[0], onUpdate)

			var noData *audit.NoUsableDataError
			if errors.As(err, &noData) && !asJSON {
				printRemediation(out, noData)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&reanalyze, "reanalyze", false, "Ignore and clear the cached result")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print every update as a JSON line")
	cmd.Flags().BoolVar(&presence, "presence", false, "Also look the business up in the directory (backend needs a Places key)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default from config)")

	return cmd
}
