package upgrade

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upgradeStartedTotal   *prometheus.CounterVec
	upgradeCompletedTotal *prometheus.CounterVec
	upgradeDuration       *prometheus.HistogramVec
	pollTicksTotal        *prometheus.CounterVec

	// Registration guard; the flag is read from recording goroutines
	metricsOnce       sync.Once
	metricsRegistered atomic.Bool
)

// Metrics records upgrade session metrics. All methods are no-ops until
// InitMetrics has been called, so library users who never opt into Prometheus
// pay nothing.
type Metrics struct{}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// InitMetrics initializes all Prometheus metrics. Call once at startup when
// metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		upgradeStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upshift_upgrade_started_total",
				Help: "Total number of upgrade sessions started",
			},
			[]string{"service"},
		)

		upgradeCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upshift_upgrade_completed_total",
				Help: "Total number of upgrade sessions completed",
			},
			[]string{"service", "status"},
		)

		upgradeDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upshift_upgrade_duration_seconds",
				Help:    "Duration of upgrade sessions in seconds",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"service"},
		)

		pollTicksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upshift_poll_ticks_total",
				Help: "Total number of poll ticks per wait phase",
			},
			[]string{"phase"},
		)

		metricsRegistered.Store(true)
	})
}

// IsMetricsRegistered reports whether InitMetrics has run.
func IsMetricsRegistered() bool {
	return metricsRegistered.Load()
}

// RecordStarted records the start of an upgrade session.
func (m *Metrics) RecordStarted(service string) {
	if !metricsRegistered.Load() {
		return
	}
	upgradeStartedTotal.WithLabelValues(service).Inc()
}

// RecordCompleted records the terminal outcome of an upgrade session.
func (m *Metrics) RecordCompleted(service, status string, elapsed time.Duration) {
	if !metricsRegistered.Load() {
		return
	}
	upgradeCompletedTotal.WithLabelValues(service, status).Inc()
	upgradeDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// RecordPollTick records one poll tick in a wait phase.
func (m *Metrics) RecordPollTick(phase string) {
	if !metricsRegistered.Load() {
		return
	}
	pollTicksTotal.WithLabelValues(phase).Inc()
}
