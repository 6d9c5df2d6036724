// Package metrics exposes Prometheus counters for HTTP traffic, downstream calls
// and club business events. A nil *Metrics is a valid no-op recorder.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build independent instances.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	externalCalls   *prometheus.CounterVec
	externalLatency *prometheus.HistogramVec
	businessEvents  *prometheus.CounterVec
}

// New registers every collector, including Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vinoclub",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vinoclub",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		externalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vinoclub",
			Name:      "external_calls_total",
			Help:      "Calls to payment and address providers",
		}, []string{"target", "operation", "outcome"}),
		externalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vinoclub",
			Name:      "external_call_duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target", "operation"}),
		businessEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vinoclub",
			Name:      "business_events_total",
			Help:      "Signups, joins, registrations and charges by outcome",
		}, []string{"action", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.latency,
		m.externalCalls,
		m.externalLatency,
		m.businessEvents,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency, labelled by the matched ServeMux pattern.
// It must wrap the mux directly so the pattern is visible after routing.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordExternalCall tracks latency and outcome of a provider call.
func (m *Metrics) RecordExternalCall(target, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.externalCalls.WithLabelValues(target, operation, outcomeLabel(err == nil)).Inc()
	m.externalLatency.WithLabelValues(target, operation).Observe(duration.Seconds())
}

// RecordBusinessEvent counts a domain action such as "signup_host" or "event_register".
func (m *Metrics) RecordBusinessEvent(action string, success bool) {
	if m == nil {
		return
	}
	m.businessEvents.WithLabelValues(action, outcomeLabel(success)).Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(statusCode int) {
	s.status = statusCode
	s.ResponseWriter.WriteHeader(statusCode)
}
