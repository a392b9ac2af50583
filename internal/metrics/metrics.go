// Package metrics holds the gateway's Prometheus collectors. Collectors live
// on a private registry so tests can create as many instances as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "erpgraph"

// Auth outcomes recorded by ObserveAuth.
const (
	AuthOK               = "ok"
	AuthMissingHeaders   = "missing_headers"
	AuthExpired          = "expired"
	AuthUnknown          = "unknown_credential"
	AuthInvalidSignature = "invalid_signature"
	AuthInternal         = "internal_error"
	AuthAdminRejected    = "admin_rejected"
)

// Metrics owns the registry and every collector the gateway exports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	durations       *prometheus.HistogramVec
	authResults     *prometheus.CounterVec
	graphqlFields   *prometheus.CounterVec
	graphqlDuration prometheus.Histogram
}

// New creates a Metrics with a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the gateway.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		authResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_results_total",
			Help:      "Request authentication outcomes.",
		}, []string{"result"}),
		graphqlFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_fields_total",
			Help:      "Top-level GraphQL fields resolved, by outcome.",
		}, []string{"field", "outcome"}),
		graphqlDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_execution_seconds",
			Help:      "Time spent executing a GraphQL document.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.requests, m.durations, m.authResults, m.graphqlFields, m.graphqlDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations, labelled by the chi route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.durations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveAuth counts one authentication outcome.
func (m *Metrics) ObserveAuth(result string) {
	if m == nil {
		return
	}
	m.authResults.WithLabelValues(result).Inc()
}

// ObserveGraphQLField counts one resolved top-level field.
func (m *Metrics) ObserveGraphQLField(field string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.graphqlFields.WithLabelValues(field, outcome).Inc()
}

// ObserveGraphQLDuration records how long one document took to execute.
func (m *Metrics) ObserveGraphQLDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.graphqlDuration.Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
