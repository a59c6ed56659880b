package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	engineOperationsTotal   *prometheus.CounterVec
	engineOperationSeconds  *prometheus.HistogramVec
	engineRowsWrittenTotal  *prometheus.CounterVec
	leaderboardCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the API and the engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_http_requests_total",
			Help: "Engine API requests by method, route and status.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursework_http_request_seconds",
			Help:    "Latency of engine API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_http_errors_total",
			Help: "Engine API responses with a 4xx or 5xx status.",
		}, []string{"method", "route", "status"})

		engineOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_engine_operations_total",
			Help: "Engine operations by outcome (ok, fail, error).",
		}, []string{"operation", "outcome"})

		engineOperationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursework_engine_operation_seconds",
			Help:    "Duration of engine batch operations.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"})

		engineRowsWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_engine_rows_written_total",
			Help: "Rows written by engine bulk updates.",
		}, []string{"operation", "table"})

		leaderboardCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_leaderboard_cache_lookups_total",
			Help: "Leaderboard cache lookups by result (hit, miss, error).",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			engineOperationsTotal,
			engineOperationSeconds,
			engineRowsWrittenTotal,
			leaderboardCacheLookups,
		)
	})
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

// EngineOperations exposes the counter of engine operation outcomes.
func EngineOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return engineOperationsTotal
}

// EngineLatency exposes the duration histogram of engine operations.
func EngineLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return engineOperationSeconds
}

// EngineRowsWritten exposes the counter of rows written by bulk updates.
func EngineRowsWritten() *prometheus.CounterVec {
	RegisterMetrics()
	return engineRowsWrittenTotal
}

// LeaderboardCacheLookups exposes the leaderboard cache hit/miss counter.
func LeaderboardCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return leaderboardCacheLookups
}
