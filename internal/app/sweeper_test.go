package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lucasew/cachequota/internal/eviction"
	"github.com/lucasew/cachequota/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func writeFile(t *testing.T, dir, name string, size int64, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, os.Truncate(path, size))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestSweeperRunOnce(t *testing.T) {
	base := t.TempDir()
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Over a 2MiB quota.
	writeFile(t, filepath.Join(base, "big"), "old", 2*mib, epoch)
	writeFile(t, filepath.Join(base, "big"), "new", 1*mib, epoch.Add(time.Hour))
	// Under it.
	writeFile(t, filepath.Join(base, "small"), "only", 1*mib, epoch)

	store := repository.NewTenantStore(base)
	s := NewSweeper(store, eviction.NewMaintainer(), 2, 2)

	var mu sync.Mutex
	seen := map[string]int{}
	s.OnTenant = func(tenant string, res eviction.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, err)
		seen[tenant] = len(res.Deletions)
	}

	sum, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Tenants: 2, Deleted: 1, Freed: 2 * mib}, sum)
	assert.Equal(t, map[string]int{"big": 1, "small": 0}, seen)

	_, err = os.Stat(filepath.Join(base, "big", "old"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.FileExists(t, filepath.Join(base, "big", "new"))
	assert.FileExists(t, filepath.Join(base, "small", "only"))
}

type failingMaintainer struct{}

func (failingMaintainer) Maintain(ctx context.Context, tenant, dir string, maxBytes int64) (eviction.Result, error) {
	if tenant == "bad" {
		return eviction.Result{}, errors.New("boom")
	}
	return eviction.Result{}, nil
}

func TestSweeperContinuesPastFailures(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"bad", "good"} {
		require.NoError(t, os.Mkdir(filepath.Join(base, name), 0o755))
	}

	s := NewSweeper(repository.NewTenantStore(base), failingMaintainer{}, 1, 0)
	sum, err := s.RunOnce(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant bad")
	assert.Equal(t, 2, sum.Tenants)
	assert.Equal(t, 1, sum.Failed)
}
