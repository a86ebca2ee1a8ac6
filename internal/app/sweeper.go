package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lucasew/cachequota/internal/eviction"
	"github.com/lucasew/cachequota/internal/eviction/policy/maxsize"
	"github.com/lucasew/cachequota/internal/repository"
	"golang.org/x/sync/errgroup"
)

type maintainer interface {
	Maintain(ctx context.Context, tenant, dir string, maxBytes int64) (eviction.Result, error)
}

// Sweeper runs maintenance over every tenant directory with the default quota.
type Sweeper struct {
	store       *repository.TenantStore
	maintainer  maintainer
	defaultMB   float64
	concurrency int

	// OnTenant, when set, is called after each tenant is processed. It may
	// be called from several goroutines at once.
	OnTenant func(tenant string, res eviction.Result, err error)
}

// Summary aggregates one sweep.
type Summary struct {
	Tenants int
	Failed  int
	Deleted int
	Freed   int64
}

func NewSweeper(store *repository.TenantStore, m maintainer, defaultMB float64, concurrency int) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		store:       store,
		maintainer:  m,
		defaultMB:   defaultMB,
		concurrency: concurrency,
	}
}

// Start sweeps every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sum, err := s.RunOnce(ctx)
			if err != nil {
				slog.Error("Sweep failed", "error", err, "failed", sum.Failed)
				continue
			}
			slog.Info("Sweep finished", "tenants", sum.Tenants, "deleted", sum.Deleted, "freed", sum.Freed)
		}
	}
}

// Tenants lists the tenants a sweep would visit.
func (s *Sweeper) Tenants() ([]string, error) {
	return s.store.Tenants()
}

// RunOnce maintains every tenant once. A failing tenant does not stop the
// others; the failures are joined into the returned error.
func (s *Sweeper) RunOnce(ctx context.Context) (Summary, error) {
	tenants, err := s.store.Tenants()
	if err != nil {
		return Summary{}, err
	}

	var (
		mu   sync.Mutex
		sum  = Summary{Tenants: len(tenants)}
		errs []error
	)
	maxBytes := maxsize.FromMB(s.defaultMB).MaxBytes

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, tenant := range tenants {
		g.Go(func() error {
			dir, err := s.store.Dir(tenant)
			var res eviction.Result
			if err == nil {
				res, err = s.maintainer.Maintain(ctx, tenant, dir, maxBytes)
			}

			mu.Lock()
			sum.Deleted += len(res.Deletions)
			sum.Freed += res.Freed
			if err != nil {
				sum.Failed++
				errs = append(errs, fmt.Errorf("tenant %s: %w", tenant, err))
			}
			mu.Unlock()

			if s.OnTenant != nil {
				s.OnTenant(tenant, res, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return sum, errors.Join(errs...)
}
