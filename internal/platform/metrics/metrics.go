package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for pipeline runs and store operations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors for audiowave. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	errorsTotal     prometheus.Counter
	runsTotal       *prometheus.CounterVec
	activeRenders   prometheus.Gauge
	renderSeconds   *prometheus.HistogramVec
	cleanupFailures prometheus.Counter
	storeOperations *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiowave_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"method", "status"})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiowave_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiowave_pipeline_runs_total",
		Help: "Render-and-publish runs by outcome",
	}, []string{"outcome"})
	activeRenders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audiowave_active_renders",
		Help: "Renders currently in progress",
	})
	renderSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiowave_render_seconds",
		Help:    "Wall time spent rendering waveform videos",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"renderer"})
	cleanupFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiowave_cleanup_failures_total",
		Help: "Temporary files that could not be removed after a run",
	})
	storeOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiowave_store_operations_total",
		Help: "Asset store calls by operation and outcome",
	}, []string{"op", "outcome"})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		runsTotal,
		activeRenders,
		renderSeconds,
		cleanupFailures,
		storeOperations,
	)

	return &Metrics{
		registry:        registry,
		requestsTotal:   requestsTotal,
		errorsTotal:     errorsTotal,
		runsTotal:       runsTotal,
		activeRenders:   activeRenders,
		renderSeconds:   renderSeconds,
		cleanupFailures: cleanupFailures,
		storeOperations: storeOperations,
	}
}

// ObserveRequest records one handled request. Its signature matches
// middleware.StatusObserver.
func (m *Metrics) ObserveRequest(method, _ string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	if status >= 400 {
		m.errorsTotal.Inc()
	}
}

// ObserveRun records a finished pipeline run.
func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome(err)).Inc()
}

// RenderStarted bumps the active render gauge and returns a func that
// records the render's duration and drops the gauge again.
func (m *Metrics) RenderStarted(renderer string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.activeRenders.Inc()
	return func() {
		m.activeRenders.Dec()
		m.renderSeconds.WithLabelValues(renderer).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncCleanupFailures() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// ObserveStore records one asset store call.
func (m *Metrics) ObserveStore(op string, err error) {
	if m == nil {
		return
	}
	m.storeOperations.WithLabelValues(op, outcome(err)).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
