// Package metrics provides Prometheus metrics for the ETA service.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ETA request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeClientError = "client_error"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// ETA pipeline metrics
	ETARequestsTotal    *prometheus.CounterVec
	EstimatorTierTotal  *prometheus.CounterVec
	BatchFallbacksTotal *prometheus.CounterVec
	EstimationDuration  *prometheus.HistogramVec
	SegmentStops        prometheus.Histogram

	// History database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	// cancel stops the DB stats collector goroutine
	cancel context.CancelFunc

	// wg tracks the DB stats collector goroutine for graceful shutdown
	wg sync.WaitGroup
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeeta_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routeeta_http_request_duration_seconds",
				Help:    "HTTP request latency distribution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ETARequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeeta_eta_requests_total",
				Help: "Route ETA computations by outcome",
			},
			[]string{"outcome"},
		),
		EstimatorTierTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeeta_history_tier_total",
				Help: "Historical delay lookups by the aggregation tier that answered",
			},
			[]string{"tier"},
		),
		BatchFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeeta_batch_fallbacks_total",
				Help: "Batch estimations that fell back to one call per stop",
			},
			[]string{"estimator"},
		),
		EstimationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routeeta_estimation_duration_seconds",
				Help:    "Time spent estimating delays for one segment",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"estimator"},
		),
		SegmentStops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "routeeta_segment_stops",
			Help:    "Number of stops in computed segments",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routeeta_db_connections_open",
			Help: "Number of open history database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routeeta_db_connections_in_use",
			Help: "Number of history database connections currently in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routeeta_db_connections_idle",
			Help: "Number of idle history database connections",
		}),
		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routeeta_db_wait_seconds_total",
			Help: "Total time blocked waiting for a history database connection",
		}),
		logger: logger,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ETARequestsTotal,
		m.EstimatorTierTotal,
		m.BatchFallbacksTotal,
		m.EstimationDuration,
		m.SegmentStops,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
	)
	return m
}

// ObserveTier counts one historical lookup. Safe on a nil receiver.
func (m *Metrics) ObserveTier(tier string) {
	if m == nil {
		return
	}
	m.EstimatorTierTotal.WithLabelValues(tier).Inc()
}

// ObserveEstimation records one segment estimation.
func (m *Metrics) ObserveEstimation(estimator string, stops int, pointwise bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EstimationDuration.WithLabelValues(estimator).Observe(elapsed.Seconds())
	m.SegmentStops.Observe(float64(stops))
	if pointwise {
		m.BatchFallbacksTotal.WithLabelValues(estimator).Inc()
	}
}

// ObserveOutcome counts one ETA request.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ETARequestsTotal.WithLabelValues(outcome).Inc()
}

// StartDBStatsCollector starts a goroutine that periodically collects database
// connection pool statistics and updates the corresponding metrics.
// The interval specifies how often to collect stats.
// This method is idempotent - calling it multiple times has no effect after the first call.
// Call Shutdown() to stop the collector.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}

	// Prevent spawning multiple collectors
	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	// Add to WaitGroup BEFORE exposing cancel to avoid race with Shutdown
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				if m.logger != nil {
					m.logger.Error("panic in DB stats collector", "error", r)
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				// Add the delta of wait duration since last check
				waitDelta := stats.WaitDuration - lastWaitDuration
				if waitDelta > 0 {
					m.DBWaitSecondsTotal.Add(waitDelta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the DB stats collector goroutine and waits for it to exit.
// This method is safe to call multiple times.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
