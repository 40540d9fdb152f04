package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "garage"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	httpErrors        *prometheus.CounterVec
	ticketTransitions *prometheus.CounterVec
	advisoryCalls     *prometheus.CounterVec
	feedEvents        *prometheus.CounterVec
}

// NewMetrics registers collectors, including Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		ticketTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_transitions_total",
			Help:      "Accepted ticket status transitions by target status.",
		}, []string{"to"}),
		advisoryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_calls_total",
			Help:      "AI advisory flow invocations by flow and outcome.",
		}, []string{"flow", "outcome"}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_total",
			Help:      "Change events observed by collection and type.",
		}, []string{"collection", "type"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.httpErrors,
		m.ticketTransitions,
		m.advisoryCalls,
		m.feedEvents,
	)
	return m
}

// RecordRequest observes one completed HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(route, method, code).Inc()
}

// RecordTransition counts an accepted ticket status change.
func (m *Metrics) RecordTransition(to string) {
	if m == nil {
		return
	}
	m.ticketTransitions.WithLabelValues(to).Inc()
}

// RecordAdvisory counts an advisory flow call; outcome is "ok", "invalid_input" or "failed".
func (m *Metrics) RecordAdvisory(flow, outcome string) {
	if m == nil {
		return
	}
	m.advisoryCalls.WithLabelValues(flow, outcome).Inc()
}

// RecordFeedEvent counts a change seen on the feed.
func (m *Metrics) RecordFeedEvent(collection, eventType string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(collection, eventType).Inc()
}
