package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lucasew/cachequota/internal/app"
	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/eviction"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Enforces the default quota on every tenant once, locally",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		deps, cleanup, err := app.NewDeps(cfg)
		if err != nil {
			errutil.ReportError(err, "Failed to initialize")
			os.Exit(1)
		}
		defer cleanup()

		sweeper := app.NewSweeper(deps.Store, deps.Maintainer, cfg.DefaultMB, cfg.SweepConcurrency)
		tenants, err := sweeper.Tenants()
		if err != nil {
			errutil.ReportError(err, "Failed to list tenants")
			os.Exit(1)
		}

		bar := progressbar.NewOptions(
			len(tenants),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("sweeping"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprint(os.Stderr, "\n"); err != nil {
					errutil.LogMsg(err, "Failed to print newline to stderr")
				}
			}),
		)
		sweeper.OnTenant = func(tenant string, res eviction.Result, err error) {
			errutil.LogMsg(err, "Tenant maintenance failed", "tenant", tenant)
			errutil.LogMsg(bar.Add(1), "Failed to update progress bar")
		}

		sum, err := sweeper.RunOnce(cmd.Context())
		errutil.LogMsg(bar.Finish(), "Failed to finish progress bar")
		slog.Info("Sweep finished", "tenants", sum.Tenants, "failed", sum.Failed, "deleted", sum.Deleted, "freed", sum.Freed)
		if err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
