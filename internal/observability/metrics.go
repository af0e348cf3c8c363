package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus collectors for the triage pipeline.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	escalationsTotal  *prometheus.CounterVec
	ticketsTotal      *prometheus.CounterVec
	routingTotal      *prometheus.CounterVec
	classifierLatency prometheus.Histogram
	classifierErrors  prometheus.Counter
	slaBreachesTotal  prometheus.Counter
	sweepDuration     prometheus.Histogram
	triageDegraded    *prometheus.CounterVec
}

// NewMetrics builds a registry with process and Go runtime collectors
// plus the service-specific series.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		escalationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_escalations_total",
			Help: "Escalation evaluations by outcome.",
		}, []string{"escalated"}),
		ticketsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_tickets_total",
			Help: "Tickets created or reused by the pipeline.",
		}, []string{"action"}),
		routingTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_routing_decisions_total",
			Help: "Routing decisions by method.",
		}, []string{"method"}),
		classifierLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "classifier_request_duration_seconds",
			Help:    "AI classifier round-trip latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5},
		}),
		classifierErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "classifier_errors_total",
			Help: "AI classifier calls that failed or timed out.",
		}),
		slaBreachesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_breaches_total",
			Help: "Tickets newly flagged as SLA-breached.",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Duration of SLA monitor sweeps.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		triageDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_degraded_total",
			Help: "Pipeline runs that completed with a degraded step.",
		}, []string{"step"}),
	}
}

// RecordRequest tracks a completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordEscalation tracks one evaluator run.
func (m *Metrics) RecordEscalation(escalated bool) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(strconv.FormatBool(escalated)).Inc()
}

// RecordTicket tracks a ticket mutation, action is "created" or "reused".
func (m *Metrics) RecordTicket(action string) {
	if m == nil {
		return
	}
	m.ticketsTotal.WithLabelValues(action).Inc()
}

// RecordRouting tracks a routing decision by method ("ai", "fallback").
func (m *Metrics) RecordRouting(method string) {
	if m == nil {
		return
	}
	m.routingTotal.WithLabelValues(method).Inc()
}

// RecordClassifier tracks one classifier call.
func (m *Metrics) RecordClassifier(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.classifierLatency.Observe(duration.Seconds())
	if err != nil {
		m.classifierErrors.Inc()
	}
}

// RecordSLABreaches adds newly flagged tickets from a sweep.
func (m *Metrics) RecordSLABreaches(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.slaBreachesTotal.Add(float64(count))
}

// RecordSweep tracks one SLA sweep.
func (m *Metrics) RecordSweep(duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}

// RecordDegraded tracks a pipeline step that fell back ("classifier",
// "sla", "assignment", "notification").
func (m *Metrics) RecordDegraded(step string) {
	if m == nil {
		return
	}
	m.triageDegraded.WithLabelValues(step).Inc()
}
