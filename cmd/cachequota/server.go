package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lucasew/cachequota/internal/app"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		server, cleanup, err := app.NewServer(cfg)
		if err != nil {
			slog.Error("Failed to initialize server", "error", err)
			os.Exit(1)
		}

		if err := serve(server, cleanup); err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	},
}

// serve runs server until it stops and releases its dependencies before
// returning, so callers may exit right after.
func serve(server *http.Server, cleanup func()) error {
	defer cleanup()
	return server.ListenAndServe()
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().Int("port", 8080, "Port to run the server on")
	serverCmd.Flags().Duration("sweep-interval", time.Duration(0), "Interval between background sweeps of every tenant (0 disables)")

	mustBindPFlag("port", serverCmd.Flags().Lookup("port"))
	serverCmd.Flags().Bool("metrics", false, "Serve Prometheus metrics on /metrics")

	mustBindPFlag("sweep-interval", serverCmd.Flags().Lookup("sweep-interval"))
	mustBindPFlag("metrics", serverCmd.Flags().Lookup("metrics"))
}
