package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry's Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Registry metrics
	RegistryLoadsTotal      *prometheus.CounterVec
	RegistryLoadDuration    prometheus.Histogram
	AspectsLoaded           prometheus.Gauge
	SearchableFieldsTotal   *prometheus.GaugeVec
	ValidationFailuresTotal *prometheus.CounterVec

	// Spec cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datahub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		RegistryLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_registry_loads_total",
				Help: "Total number of registry loads",
			},
			[]string{"trigger", "status"},
		),
		RegistryLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "datahub_registry_load_duration_seconds",
				Help:    "Registry load duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		AspectsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "datahub_aspects_loaded",
				Help: "Number of aspects in the current snapshot",
			},
		),
		SearchableFieldsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datahub_searchable_fields",
				Help: "Number of searchable fields in the current snapshot",
			},
			[]string{"field_type"},
		),
		ValidationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_model_validation_failures_total",
				Help: "Total number of model validation failures",
			},
			[]string{"kind"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_cache_hits_total",
				Help: "Total number of spec cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_cache_misses_total",
				Help: "Total number of spec cache misses",
			},
			[]string{"cache_type"},
		),

		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_store_operations_total",
				Help: "Total number of snapshot store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datahub_store_operation_duration_seconds",
				Help:    "Snapshot store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RegistryLoadsTotal,
		m.RegistryLoadDuration,
		m.AspectsLoaded,
		m.SearchableFieldsTotal,
		m.ValidationFailuresTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
	)

	return m
}

// ObserveStoreOperation records the outcome of a store call started at start
func (m *Metrics) ObserveStoreOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests, labelled by route template
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
