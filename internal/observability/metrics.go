package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Page metrics
	PagesClassified *prometheus.CounterVec
	AutofillRuns    *prometheus.CounterVec
	FieldsFilled    prometheus.Histogram
	Observations    *prometheus.CounterVec

	// Advice metrics
	AdviceRequestsTotal   *prometheus.CounterVec
	AdviceRequestDuration *prometheus.HistogramVec

	// Store metrics
	ProfileStoreOps     *prometheus.CounterVec
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics registers all metrics on reg. A nil reg gets a fresh registry
// with the Go and process collectors.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "smartfill"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),

		// Page metrics
		PagesClassified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_classified_total",
				Help:      "Pages classified, by detected context",
			},
			[]string{"context"},
		),
		AutofillRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autofill_runs_total",
				Help:      "Autofill passes, by trigger source",
			},
			[]string{"source"},
		),
		FieldsFilled: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "autofill_fields_filled",
				Help:      "Number of fields filled per autofill pass",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			},
		),
		Observations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_total",
				Help:      "Observed field edits, by outcome",
			},
			[]string{"outcome"},
		),

		// Advice metrics
		AdviceRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "advice_requests_total",
				Help:      "Total number of advice requests",
			},
			[]string{"mode", "status"},
		),
		AdviceRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "advice_request_duration_seconds",
				Help:      "Advice request duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{"mode"},
		),

		// Store metrics
		ProfileStoreOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_store_operations_total",
				Help:      "Profile store operations, by operation and status",
			},
			[]string{"op", "status"},
		),
		DBConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_active",
				Help:      "Number of active database connections",
			},
		),
		DBConnectionsIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
	}

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordClassification records a page classification
func (m *Metrics) RecordClassification(context string) {
	if m == nil {
		return
	}
	m.PagesClassified.WithLabelValues(context).Inc()
}

// RecordAutofill records one autofill pass
func (m *Metrics) RecordAutofill(source string, filled int) {
	if m == nil {
		return
	}
	m.AutofillRuns.WithLabelValues(source).Inc()
	m.FieldsFilled.Observe(float64(filled))
}

// RecordObservation records the outcome of an observed field edit
func (m *Metrics) RecordObservation(outcome string) {
	if m == nil {
		return
	}
	m.Observations.WithLabelValues(outcome).Inc()
}

// RecordAdvice records advice request metrics
func (m *Metrics) RecordAdvice(mode, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AdviceRequestsTotal.WithLabelValues(mode, status).Inc()
	m.AdviceRequestDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStoreOp records a profile store operation
func (m *Metrics) RecordStoreOp(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProfileStoreOps.WithLabelValues(op, status).Inc()
}

// RecordDBStats updates the connection pool gauges
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// HTTPMiddleware returns middleware for recording HTTP metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
	})
}

// routePattern labels requests by chi route pattern to keep cardinality bounded
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
