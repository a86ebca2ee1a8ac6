package minfree

import (
	"fmt"
	"log/slog"
	"syscall"
)

// Policy asks tenants to shed bytes while the filesystem holding Path has
// less than MinFreeBytes available.
type Policy struct {
	Path         string
	MinFreeBytes int64

	statfs func(path string, buf *syscall.Statfs_t) error
}

func New(path string, minFree int64) *Policy {
	return &Policy{Path: path, MinFreeBytes: minFree, statfs: syscall.Statfs}
}

func (m *Policy) BytesToFree(currentSize int64) (int64, error) {
	statfs := m.statfs
	if statfs == nil {
		statfs = syscall.Statfs
	}
	var stat syscall.Statfs_t
	if err := statfs(m.Path, &stat); err != nil {
		return 0, fmt.Errorf("failed to check disk space: %w", err)
	}

	freeSpace := int64(stat.Bavail) * int64(stat.Bsize)
	slog.Debug("Disk space check", "path", m.Path, "free_bytes", freeSpace, "min_required", m.MinFreeBytes)

	if freeSpace >= m.MinFreeBytes {
		return 0, nil
	}
	// A single tenant cannot free more than it holds.
	return min(m.MinFreeBytes-freeSpace, currentSize), nil
}
