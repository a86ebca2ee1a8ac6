package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lucasew/cachequota/internal/config"
	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/eviction"
	"github.com/lucasew/cachequota/internal/eviction/policy/minfree"
	"github.com/lucasew/cachequota/internal/handler"
	"github.com/lucasew/cachequota/internal/journal"
	"github.com/lucasew/cachequota/internal/metrics"
	"github.com/lucasew/cachequota/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps are the long-lived components shared by the server and local commands.
type Deps struct {
	Store      *repository.TenantStore
	Maintainer *eviction.Maintainer
	Journal    *journal.Journal
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
}

// NewDeps wires the store, maintainer and optional journal from cfg.
// The returned func closes what was opened.
func NewDeps(cfg config.Config) (*Deps, func(), error) {
	opts := []eviction.Option{eviction.WithRescan(cfg.Rescan)}

	if cfg.MinFreeSpace > 0 {
		slog.Info("Adding MinFreeSpace policy", "min_free", cfg.MinFreeSpace, "path", cfg.BaseDir)
		opts = append(opts, eviction.WithPolicies(minfree.New(cfg.BaseDir, cfg.MinFreeSpace)))
	}

	var reg *prometheus.Registry
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
		opts = append(opts, eviction.WithObserver(metrics.NewMaintenance(reg)))
	}

	var j *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		j, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open journal at %s: %w", cfg.JournalPath, err)
		}
		slog.Info("Journaling evictions", "path", cfg.JournalPath)
		opts = append(opts, eviction.WithRecorder(j))
	}

	deps := &Deps{
		Store:      repository.NewTenantStore(cfg.BaseDir),
		Maintainer: eviction.NewMaintainer(opts...),
		Journal:    j,
		Registry:   reg,
	}
	cleanup := func() {
		if j != nil {
			errutil.Close(j, "Failed to close journal")
		}
	}
	return deps, cleanup, nil
}

// NewServer builds the HTTP server and starts the optional background sweep.
func NewServer(cfg config.Config) (*http.Server, func(), error) {
	deps, closeDeps, err := NewDeps(cfg)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.SweepInterval > 0 {
		sweeper := NewSweeper(deps.Store, deps.Maintainer, cfg.DefaultMB, cfg.SweepConcurrency)
		slog.Info("Starting background sweep", "interval", cfg.SweepInterval, "default_mb", cfg.DefaultMB)
		go sweeper.Start(ctx, cfg.SweepInterval)
	}

	mux := http.NewServeMux()
	handler.NewRemovalHandler(deps.Store, deps.Maintainer, cfg.DefaultMB).Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if deps.Registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(deps.Registry))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Starting server", "addr", addr, "base_dir", cfg.BaseDir, "default_mb", cfg.DefaultMB)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	cleanup := func() {
		cancel()
		closeDeps()
	}
	return server, cleanup, nil
}
