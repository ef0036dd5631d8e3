package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	odSubmissionsTotal    *prometheus.CounterVec
	odTransitionsTotal    *prometheus.CounterVec
	odStatsCacheHitsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "od_http_requests_total",
			Help: "Total number of OD API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "od_http_latency_seconds",
			Help:    "Latency distribution for OD API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "od_http_errors_total",
			Help: "Total number of error responses returned by OD endpoints.",
		}, []string{"method", "route", "status"})

		odSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "od_submissions_total",
			Help: "OD request submissions by outcome.",
		}, []string{"result"})

		odTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "od_status_updates_total",
			Help: "OD status update attempts by requested status and outcome.",
		}, []string{"status", "result"})

		odStatsCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "od_stats_cache_total",
			Help: "Stats cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			odSubmissionsTotal,
			odTransitionsTotal,
			odStatsCacheHitsTotal,
		)
	})
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ODSubmissions counts submissions labelled by result.
func ODSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return odSubmissionsTotal
}

// ODStatusUpdates counts status updates labelled by requested status and result.
func ODStatusUpdates() *prometheus.CounterVec {
	RegisterMetrics()
	return odTransitionsTotal
}

// ODStatsCache counts stats cache hits and misses.
func ODStatsCache() *prometheus.CounterVec {
	RegisterMetrics()
	return odStatsCacheHitsTotal
}
