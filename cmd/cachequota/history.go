package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/journal"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Prints journaled evictions, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if cfg.JournalPath == "" {
			errutil.ReportError(fmt.Errorf("journal-path is not set"), "No journal to read")
			os.Exit(1)
		}
		tenant, _ := cmd.Flags().GetString("tenant")
		limit, _ := cmd.Flags().GetInt("limit")

		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			errutil.ReportError(err, "Failed to open journal", "path", cfg.JournalPath)
			os.Exit(1)
		}
		defer errutil.Close(j, "Failed to close journal")

		records, err := j.Recent(cmd.Context(), tenant, limit)
		if err != nil {
			errutil.ReportError(err, "Failed to read journal")
			os.Exit(1)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EVICTED AT\tTENANT\tOUTCOME\tSIZE\tPATH\tRUN")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.EvictedAt.Format(time.RFC3339), r.Tenant, r.Outcome, r.Size, r.Path, r.RunID)
		}
		errutil.LogMsg(tw.Flush(), "Failed to flush output")
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("tenant", "", "Only show this tenant")
	historyCmd.Flags().Int("limit", 50, "Max rows to print")
}
