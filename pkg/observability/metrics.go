// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring sandboxd.
package observability

import "github.com/prometheus/client_golang/prometheus"

// EngineBuckets defines histogram buckets suited for container engine
// round trips, from fast inspects to slow image pulls, ranging from 50ms
// to 120s.
var EngineBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxd_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxd_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RequestsInFlight tracks the number of HTTP requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sandboxd_requests_in_flight",
			Help: "In-flight requests",
		},
	)

	// OperationsTotal counts orchestrator lifecycle operations by name and outcome.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxd_operations_total",
			Help: "Lifecycle operations",
		},
		[]string{"operation", "outcome"},
	)

	// OperationDuration records orchestrator lifecycle operation duration in seconds.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxd_operation_duration_seconds",
			Help:    "Lifecycle operation duration",
			Buckets: EngineBuckets,
		},
		[]string{"operation"},
	)

	// SandboxesByStatus tracks the number of sandbox records per status.
	SandboxesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sandboxd_sandboxes",
			Help: "Sandbox records by status",
		},
		[]string{"status"},
	)

	// EngineCallsTotal counts container engine calls by verb and outcome.
	EngineCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxd_engine_calls_total",
			Help: "Container engine calls",
		},
		[]string{"call", "outcome"},
	)

	// EngineCallDuration records container engine call latency in seconds.
	EngineCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxd_engine_call_duration_seconds",
			Help:    "Container engine call latency",
			Buckets: EngineBuckets,
		},
		[]string{"call"},
	)

	// RepoCallsTotal counts git backend calls by verb and outcome.
	RepoCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxd_repo_calls_total",
			Help: "Git backend calls",
		},
		[]string{"call", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		OperationsTotal,
		OperationDuration,
		SandboxesByStatus,
		EngineCallsTotal,
		EngineCallDuration,
		RepoCallsTotal,
	)
}

// SetSandboxStatusCounts replaces the per-status gauge values with a fresh
// count snapshot, zeroing statuses missing from the map.
func SetSandboxStatusCounts(counts map[string]int) {
	for _, status := range []string{"created", "starting", "running", "stopping", "stopped", "error"} {
		SandboxesByStatus.WithLabelValues(status).Set(float64(counts[status]))
	}
}
