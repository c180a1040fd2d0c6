package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for stackform deployment operations.
type Metrics struct {
	config MetricsConfig

	// Operation metrics
	operationsStarted   *prometheus.CounterVec
	operationsCompleted *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec

	// Progress metrics
	progressPercent  *prometheus.GaugeVec
	progressRecords  *prometheus.CounterVec

	// Subprocess metrics
	subprocessLines *prometheus.CounterVec
	subprocessExits *prometheus.CounterVec

	// Lock metrics
	staleLocksReclaimed prometheus.Counter
	lockContention      *prometheus.CounterVec

	// System metrics
	activeOperations prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_started_total",
				Help:      "Total number of workspace operations started",
			},
			[]string{"operation"},
		),
		operationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_completed_total",
				Help:      "Total number of workspace operations completed",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of workspace operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation", "status"},
		),

		progressPercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "progress_percent",
				Help:      "Current overall completion percent of the running operation",
			},
			[]string{"stage"},
		),
		progressRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "progress_records_total",
				Help:      "Total number of progress records emitted",
			},
			[]string{"stage", "status"},
		),

		subprocessLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subprocess_output_lines_total",
				Help:      "Total output lines consumed from wrapped tools",
			},
			[]string{"tool"},
		),
		subprocessExits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subprocess_exits_total",
				Help:      "Total wrapped tool exits by outcome",
			},
			[]string{"tool", "outcome"},
		),

		staleLocksReclaimed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_locks_reclaimed_total",
				Help:      "Total number of stale workspace locks reclaimed",
			},
		),
		lockContention: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_contention_total",
				Help:      "Total number of acquisitions refused because the workspace was locked",
			},
			[]string{"operation"},
		),

		activeOperations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_operations",
				Help:      "Current number of in-flight workspace operations",
			},
		),
	}

	registry.MustRegister(
		m.operationsStarted,
		m.operationsCompleted,
		m.operationDuration,
		m.progressPercent,
		m.progressRecords,
		m.subprocessLines,
		m.subprocessExits,
		m.staleLocksReclaimed,
		m.lockContention,
		m.activeOperations,
	)

	return m, nil
}

// Operation Metrics

// RecordOperationStarted increments the counter for started operations.
func (m *Metrics) RecordOperationStarted(operation string) {
	if m.operationsStarted == nil {
		return
	}
	m.operationsStarted.WithLabelValues(operation).Inc()
	m.activeOperations.Inc()
}

// RecordOperationCompleted records a finished operation with its status and duration.
func (m *Metrics) RecordOperationCompleted(operation, status string, duration time.Duration) {
	if m.operationsCompleted == nil {
		return
	}
	m.operationsCompleted.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	m.activeOperations.Dec()
}

// Progress Metrics

// SetProgress sets the current overall completion percent for a stage.
func (m *Metrics) SetProgress(stage string, percent float64) {
	if m.progressPercent == nil {
		return
	}
	m.progressPercent.WithLabelValues(stage).Set(percent)
}

// RecordProgressEmission counts an emitted progress record.
func (m *Metrics) RecordProgressEmission(stage, status string) {
	if m.progressRecords == nil {
		return
	}
	m.progressRecords.WithLabelValues(stage, status).Inc()
}

// Subprocess Metrics

// RecordSubprocessLine counts one consumed output line from a wrapped tool.
func (m *Metrics) RecordSubprocessLine(tool string) {
	if m.subprocessLines == nil {
		return
	}
	m.subprocessLines.WithLabelValues(tool).Inc()
}

// RecordSubprocessExit counts a wrapped tool exit by outcome.
func (m *Metrics) RecordSubprocessExit(tool, outcome string) {
	if m.subprocessExits == nil {
		return
	}
	m.subprocessExits.WithLabelValues(tool, outcome).Inc()
}

// Lock Metrics

// RecordStaleLockReclaimed counts a reclaimed stale lock.
func (m *Metrics) RecordStaleLockReclaimed() {
	if m.staleLocksReclaimed == nil {
		return
	}
	m.staleLocksReclaimed.Inc()
}

// RecordLockContention counts a refused acquisition.
func (m *Metrics) RecordLockContention(operation string) {
	if m.lockContention == nil {
		return
	}
	m.lockContention.WithLabelValues(operation).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
