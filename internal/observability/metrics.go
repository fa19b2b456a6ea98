// Package observability is a small, spec-scoped Prometheus metrics
// surface: HTTP traffic, queue depth, assignment counts, and sweep
// duration. Shaped after the teacher's internal/observability/
// metrics.go (CounterVec/HistogramVec/Gauge fields, nil-receiver
// middleware no-op) but scoped to this domain's handful of signals,
// and — unlike the teacher's hand-rolled version — actually wired to
// github.com/prometheus/client_golang.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: every method no-ops on a nil receiver so
// callers can pass a nil *Metrics when METRICS_ENABLED is false
// without branching at every call site.
type Metrics struct {
	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	queueDepth      *prometheus.GaugeVec
	sweepDuration   *prometheus.HistogramVec
	assignmentsMade prometheus.Counter
}

// New registers a fresh metrics set against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "job_orchestrator_http_requests_total",
			Help: "HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_orchestrator_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "job_orchestrator_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "job_orchestrator_queue_depth",
			Help: "Job count by status.",
		}, []string{"status"}),
		sweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_orchestrator_sweep_duration_seconds",
			Help:    "Scheduler sweep-phase duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		assignmentsMade: factory.NewCounter(prometheus.CounterOpts{
			Name: "job_orchestrator_assignments_total",
			Help: "Jobs assigned to a worker by the scheduler sweep.",
		}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) InflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) InflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) SetQueueDepth(status string, count int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(status).Set(float64(count))
}

func (m *Metrics) ObserveSweep(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(phase).Observe(seconds)
}

func (m *Metrics) AssignmentMade() {
	if m == nil {
		return
	}
	m.assignmentsMade.Inc()
}
