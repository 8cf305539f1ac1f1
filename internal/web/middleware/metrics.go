package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsOption configures NewMetrics.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry
}

// WithNamespace sets the metrics namespace (default: "datatable").
func WithNamespace(ns string) MetricsOption {
	return func(c *metricsConfig) { c.namespace = ns }
}

// WithBuckets sets the request duration histogram buckets.
func WithBuckets(b []float64) MetricsOption {
	return func(c *metricsConfig) { c.buckets = b }
}

// WithRegistry collects into r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) MetricsOption {
	return func(c *metricsConfig) { c.registry = r }
}

// Metrics holds the HTTP and table collectors of one server.
//
// Metrics collected:
//   - datatable_http_requests_total: requests by method, route and status
//   - datatable_http_request_duration_seconds: handler latency by route
//   - datatable_state_changes_total: table state writes by kind (url, view) and operation
//   - datatable_data_errors_total: failed data source calls by error code
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	stateChanges *prometheus.CounterVec
	dataErrors   *prometheus.CounterVec
}

// NewMetrics registers the collectors, plus the Go and process collectors
// when the registry is fresh.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := metricsConfig{namespace: "datatable", buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = prometheus.NewRegistry()
		cfg.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(cfg.registry)

	return &Metrics{
		registry: cfg.registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   cfg.buckets,
		}, []string{"route"}),

		stateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "state_changes_total",
			Help:      "Table state changes by kind and operation",
		}, []string{"kind", "op"}),

		dataErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "data_errors_total",
			Help:      "Failed data source calls by error code",
		}, []string{"code"}),
	}
}

// Middleware records request count and latency per chi route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := wrap(w)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// StateChange counts one table state write. kind is "url" or "view".
func (m *Metrics) StateChange(kind, op string) {
	m.stateChanges.WithLabelValues(kind, op).Inc()
}

// DataError counts one failed data source call.
func (m *Metrics) DataError(code string) {
	m.dataErrors.WithLabelValues(code).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
