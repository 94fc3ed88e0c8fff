// Package metrics exposes Prometheus metrics for checkgate.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the gate engine.
type Metrics struct {
	// Check execution
	ChecksTotal   *prometheus.CounterVec
	CheckDuration *prometheus.HistogramVec

	// Cache performance
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	CacheBuildsFailed prometheus.Counter

	// Gate outcomes
	GateDecisionsTotal *prometheus.CounterVec
	RunDuration        prometheus.Histogram
}

// New creates and registers the checkgate metrics.
//
// sync.Once guards registration so repeated calls never trigger a
// duplicate-collector panic. All metrics carry the "checkgate_" prefix.
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ChecksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "checkgate_checks_total",
					Help: "Total number of checks by final status",
				},
				[]string{"group", "status"},
			),

			CheckDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "checkgate_check_duration_seconds",
					Help:    "Duration of individual check runs",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
				},
				[]string{"check"},
			),

			CacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "checkgate_cache_hits_total",
					Help: "Total number of environment cache hits",
				},
			),

			CacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "checkgate_cache_misses_total",
					Help: "Total number of environment cache misses",
				},
			),

			CacheBuildsFailed: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "checkgate_cache_builds_failed_total",
					Help: "Total number of failed environment builds",
				},
			),

			GateDecisionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "checkgate_gate_decisions_total",
					Help: "Total number of gate decisions by outcome",
				},
				[]string{"decision"},
			),

			RunDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "checkgate_run_duration_seconds",
					Help:    "Duration of complete orchestration runs",
					Buckets: prometheus.ExponentialBuckets(1, 2, 10),
				},
			),
		}
	})
	return globalMetrics
}
