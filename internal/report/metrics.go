package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one process. Each Metrics owns its own
// registry, so nothing leaks between invocations or tests.
type Metrics struct {
	registry *prometheus.Registry

	invocations   *prometheus.CounterVec
	actions       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	restarts      prometheus.Counter
	failures      prometheus.Counter
	lastScore     prometheus.Gauge
	duration      prometheus.Histogram
}

// NewMetrics creates and registers the bustcall metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bustcall_invocations_total",
				Help: "Integrity assessments by severity tier",
			},
			[]string{"tier"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bustcall_actions_total",
				Help: "Remediation actions taken",
			},
			[]string{"action"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bustcall_invalidations_total",
				Help: "Cache invalidation attempts by result",
			},
			[]string{"backend", "outcome"},
		),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustcall_restarts_requested_total",
			Help: "Process restarts requested after critical or panic tiers",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustcall_pipeline_failures_total",
			Help: "Invocations aborted before remediation (probe failures)",
		}),
		lastScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bustcall_last_integrity_score",
			Help: "Integrity score of the most recent assessment",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bustcall_pipeline_duration_seconds",
			Help:    "Wall time of one escalation pipeline",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}

	m.registry.MustRegister(
		m.invocations,
		m.actions,
		m.invalidations,
		m.restarts,
		m.failures,
		m.lastScore,
		m.duration,
	)

	return m
}

// Registry returns the registry backing these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordResult updates all metrics from a single immutable Result.
// This is the only way metrics change.
func (m *Metrics) RecordResult(r *Result) {
	m.duration.Observe(r.Duration.Seconds())

	if r.Score == nil {
		m.failures.Inc()
		return
	}

	m.lastScore.Set(float64(*r.Score))
	m.invocations.WithLabelValues(r.Tier).Inc()
	m.actions.WithLabelValues(r.Action).Inc()

	if r.Invalidation != "" && r.Invalidation != InvalidationSkipped {
		m.invalidations.WithLabelValues(r.Backend, r.Invalidation).Inc()
	}
	if r.RestartRequested {
		m.restarts.Inc()
	}
}

// InvalidationSkipped marks an invalidation a dry run did not perform
const InvalidationSkipped = "skipped"
