package eviction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/eviction/policy"
	"github.com/lucasew/cachequota/internal/eviction/policy/maxsize"
)

// Recorder persists the outcome of eviction steps for operators.
type Recorder interface {
	Record(ctx context.Context, runID, tenant string, deletions []Deletion) error
}

// Observer is told about every finished maintenance run, failed or not.
type Observer interface {
	ObserveRun(res Result, err error, elapsed time.Duration)
}

// Maintainer decides whether a tenant directory needs eviction and runs it.
// Runs on the same directory are serialized.
type Maintainer struct {
	evictor  *Evictor
	policies []policy.Policy
	locks    *Locker
	recorder Recorder
	observer Observer
}

// Option configures a Maintainer.
type Option func(*Maintainer)

// WithPolicies adds server-wide policies evaluated next to the per-call quota.
func WithPolicies(policies ...policy.Policy) Option {
	return func(m *Maintainer) {
		m.policies = append(m.policies, policies...)
	}
}

// WithRecorder journals every deletion.
func WithRecorder(r Recorder) Option {
	return func(m *Maintainer) {
		m.recorder = r
	}
}

// WithObserver reports every run to o.
func WithObserver(o Observer) Option {
	return func(m *Maintainer) {
		m.observer = o
	}
}

// WithRescan makes the evictor re-probe the directory after each deletion.
func WithRescan(rescan bool) Option {
	return func(m *Maintainer) {
		m.evictor.Rescan = rescan
	}
}

func NewMaintainer(opts ...Option) *Maintainer {
	m := &Maintainer{
		evictor: NewEvictor(),
		locks:   NewLocker(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Maintain brings dir at or under maxBytes by evicting oldest entries.
// Nothing is deleted unless the current size strictly exceeds maxBytes.
//
// ctx only bounds the wait for the per-directory lock; once the run starts it
// proceeds to completion or failure.
func (m *Maintainer) Maintain(ctx context.Context, tenant, dir string, maxBytes int64) (Result, error) {
	start := time.Now()
	res, err := m.maintain(ctx, tenant, dir, maxBytes)
	if m.observer != nil {
		m.observer.ObserveRun(res, err, time.Since(start))
	}
	return res, err
}

func (m *Maintainer) maintain(ctx context.Context, tenant, dir string, maxBytes int64) (Result, error) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID, "tenant", tenant, "dir", dir)

	unlock, err := m.locks.Lock(ctx, dir)
	if err != nil {
		return Result{RunID: runID}, err
	}
	defer unlock()

	current, err := DirSize(dir)
	if err != nil {
		return Result{RunID: runID}, err
	}
	res := Result{RunID: runID, Before: current, Remaining: current}

	policies := append([]policy.Policy{&maxsize.Policy{MaxBytes: maxBytes}}, m.policies...)
	toFree := policy.Max(policies, current, func(p policy.Policy, err error) {
		errutil.ReportError(err, "Failed to check capacity policy", "dir", dir)
	})
	if toFree <= 0 {
		log.Debug("Directory within quota", "size", current, "max", maxBytes)
		return res, nil
	}

	target := current - toFree
	log.Info("Evicting files", "size", current, "max", maxBytes, "to_free", toFree, "target", target)

	ev := *m.evictor
	ev.Logger = log
	evicted, err := ev.Evict(dir, target)

	if len(evicted.Deletions) > 0 {
		res.Remaining = evicted.Remaining
	}
	res.Freed = evicted.Freed
	res.Deletions = evicted.Deletions
	res.Exhausted = evicted.Exhausted

	if m.recorder != nil && len(res.Deletions) > 0 {
		recErr := m.recorder.Record(context.WithoutCancel(ctx), runID, tenant, res.Deletions)
		errutil.LogMsg(recErr, "Failed to journal evictions", "run_id", runID)
	}

	if err != nil {
		return res, err
	}
	log.Info("Eviction finished", "freed", res.Freed, "remaining", res.Remaining, "deleted", len(res.Deletions))
	return res, nil
}
