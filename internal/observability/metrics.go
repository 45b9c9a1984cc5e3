package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	allocations     *prometheus.CounterVec
	allocatedSets   prometheus.Counter
	cacheVersion    prometheus.Gauge
}

// NewMetrics initialises the registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weavetrack_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weavetrack_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weavetrack_lot_allocations_total",
		Help: "Lot creation attempts by outcome.",
	}, []string{"outcome"})
	sets := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weavetrack_allocated_sets_total",
		Help: "Design sets consumed by committed lots.",
	})
	version := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weavetrack_report_cache_version",
		Help: "Last observed report cache version.",
	})
	registry.MustRegister(requests, duration, allocations, sets, version)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		allocations:     allocations,
		allocatedSets:   sets,
		cacheVersion:    version,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency of every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAllocation counts a lot creation attempt. Sets are only added for
// committed lots.
func (m *Metrics) ObserveAllocation(outcome string, sets int) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(outcome).Inc()
	if outcome == "allocated" && sets > 0 {
		m.allocatedSets.Add(float64(sets))
	}
}

// SetReportCacheVersion records the latest report cache version.
func (m *Metrics) SetReportCacheVersion(version int64) {
	if m == nil {
		return
	}
	m.cacheVersion.Set(float64(version))
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
