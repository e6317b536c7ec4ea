package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics, shared by every service in the mesh (agent services and coordinator alike).
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmesh_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviewmesh_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Analyzer metrics, recorded by each Agent Service for its owned department.
	analyzeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmesh_analyze_calls_total",
			Help: "Total number of analyze invocations by department and outcome",
		},
		[]string{"agent_type", "sentiment", "fallback"},
	)

	analyzeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviewmesh_analyze_duration_seconds",
			Help:    "Analyzer invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent_type"},
	)

	// Workflow metrics, recorded by the coordinator once per run.
	workflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmesh_workflow_runs_total",
			Help: "Total number of coordinator workflow runs by strategy and outcome",
		},
		[]string{"strategy", "consensus_reached"},
	)

	discussionRoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmesh_discussion_rounds_total",
			Help: "Total number of discussion rounds executed",
		},
		[]string{"strategy"},
	)

	lastRunDisagreement = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewmesh_last_run_disagreement",
			Help: "Disagreement value of the most recently completed workflow run",
		},
	)

	// System metrics
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewmesh_active_connections",
			Help: "Number of active connections",
		},
	)

	memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewmesh_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)

	goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewmesh_goroutines",
			Help: "Number of goroutines",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers every metric with the default Prometheus registry.
// Safe to call more than once; registration happens exactly once per process.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			analyzeCallsTotal,
			analyzeDuration,
			workflowRunsTotal,
			discussionRoundsTotal,
			lastRunDisagreement,
			activeConnections,
			memoryUsage,
			goroutines,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnalyzeCall records one analyzer invocation.
func RecordAnalyzeCall(agentType, sentiment string, fallback bool, duration time.Duration) {
	analyzeCallsTotal.WithLabelValues(agentType, sentiment, boolLabel(fallback)).Inc()
	analyzeDuration.WithLabelValues(agentType).Observe(duration.Seconds())
}

// RecordWorkflowRun records the outcome of one coordinator workflow run.
func RecordWorkflowRun(strategy string, consensusReached bool, rounds int, disagreement float64) {
	workflowRunsTotal.WithLabelValues(strategy, boolLabel(consensusReached)).Inc()
	if rounds > 0 {
		discussionRoundsTotal.WithLabelValues(strategy).Add(float64(rounds))
	}
	lastRunDisagreement.Set(disagreement)
}

// SetActiveConnections sets the active connections gauge
func SetActiveConnections(count int) {
	activeConnections.Set(float64(count))
}

// SetMemoryUsage sets the memory usage gauge
func SetMemoryUsage(bytes uint64) {
	memoryUsage.Set(float64(bytes))
}

// SetGoroutines sets the goroutines gauge
func SetGoroutines(count int) {
	goroutines.Set(float64(count))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
