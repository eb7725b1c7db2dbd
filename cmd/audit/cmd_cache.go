package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appaudit "github.com/bryanwahyu/seo-aio-audit/internal/application/audit"
)

func (a *app) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis cache",
	}
	cmd.AddCommand(a.cacheClearCommand())
	return cmd
}

func (a *app) cacheClearCommand() *cobra.Command {
	var cacheDir string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the cached analysis",
		Long: `Clear the cached analysis so the next analyze call runs every source
again, even for the same URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cacheDir != "" {
				a.cfg.Cache.Dir = cacheDir
			}
			kv, err := a.cacheKV(cmd.Context())
			if err != nil {
				return err
			}
			appaudit.NewCache(kv, appaudit.DefaultCacheSlot, a.cfg.Cache.TTL, nil, a.logger).Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default from config)")
	return cmd
}
