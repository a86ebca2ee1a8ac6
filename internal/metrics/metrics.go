// Package metrics exposes Prometheus metrics for quota maintenance.
//
// A nil *Maintenance is valid and records nothing, so callers can run with
// metrics disabled without branching.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/lucasew/cachequota/internal/eviction"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Maintenance implements eviction.Observer.
type Maintenance struct {
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	deletionsTotal *prometheus.CounterVec
	bytesFreed     prometheus.Counter
	exhaustedTotal prometheus.Counter
}

var _ eviction.Observer = (*Maintenance)(nil)

// NewMaintenance registers the maintenance metrics on reg.
func NewMaintenance(reg prometheus.Registerer) *Maintenance {
	return &Maintenance{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachequota_maintenance_runs_total",
				Help: "Maintenance runs by result (ok or the failure kind)",
			},
			[]string{"result"},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "cachequota_maintenance_duration_seconds",
				Help: "Duration of maintenance runs, lock wait included",
				Buckets: []float64{
					0.001,
					0.01,
					0.1,
					1,
					10,
				},
			},
		),
		deletionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachequota_deletions_total",
				Help: "Evicted entries by outcome",
			},
			[]string{"outcome"},
		),
		bytesFreed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cachequota_bytes_freed_total",
				Help: "Bytes released by evictions",
			},
		),
		exhaustedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cachequota_exhausted_runs_total",
				Help: "Runs that removed every entry and stayed over the target",
			},
		),
	}
}

func (m *Maintenance) ObserveRun(res eviction.Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(result(err)).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	for _, d := range res.Deletions {
		m.deletionsTotal.WithLabelValues(string(d.Outcome)).Inc()
	}
	m.bytesFreed.Add(float64(res.Freed))
	if res.Exhausted {
		m.exhaustedTotal.Inc()
	}
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	var e *eviction.Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return "other"
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
