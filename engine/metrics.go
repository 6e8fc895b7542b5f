package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the engine's Prometheus instrumentation. It is wired in
// via WithMetrics; engines constructed without it skip all instrumentation
// (every method is nil-receiver safe).
type Metrics struct {
	activeThreads   prometheus.Gauge
	stepsTotal      *prometheus.CounterVec
	stepLatency     *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	checkpointsTotal prometheus.Counter
	nodeFailures    *prometheus.CounterVec
	timeoutsTotal   *prometheus.CounterVec
	runResults      *prometheus.CounterVec
}

// NewMetrics registers the engine's metrics against reg and returns a
// Metrics ready to pass to WithMetrics. Registering the same reg twice
// panics, matching promauto's behaviour.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		activeThreads: factory.NewGauge(prometheus.GaugeOpts{
			Name: "workflow_engine_active_threads",
			Help: "Number of threads currently executing.",
		}),
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_engine_steps_total",
			Help: "Number of workflow steps executed, by node type.",
		}, []string{"node_type"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_engine_step_latency_seconds",
			Help:    "Node execution latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"node_type"}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_engine_retries_total",
			Help: "Node retry attempts, by node type.",
		}, []string{"node_type"}),
		checkpointsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "workflow_engine_checkpoints_total",
			Help: "Checkpoints created across all threads.",
		}),
		nodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_engine_node_failures_total",
			Help: "Node executions that returned success=false, by node type.",
		}, []string{"node_type"}),
		timeoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_engine_timeouts_total",
			Help: "Timeouts observed, by scope (node or workflow).",
		}, []string{"scope"}),
		runResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_engine_runs_total",
			Help: "Completed Execute calls, by final status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) threadStarted() {
	if m == nil {
		return
	}
	m.activeThreads.Inc()
}

func (m *Metrics) threadFinished(status ExecutionStatus) {
	if m == nil {
		return
	}
	m.activeThreads.Dec()
	m.runResults.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) stepExecuted(nodeType string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(nodeType).Inc()
	m.stepLatency.WithLabelValues(nodeType).Observe(d.Seconds())
}

func (m *Metrics) retryAttempted(nodeType string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(nodeType).Inc()
}

func (m *Metrics) checkpointCreated() {
	if m == nil {
		return
	}
	m.checkpointsTotal.Inc()
}

func (m *Metrics) nodeFailed(nodeType string) {
	if m == nil {
		return
	}
	m.nodeFailures.WithLabelValues(nodeType).Inc()
}

func (m *Metrics) timedOut(scope string) {
	if m == nil {
		return
	}
	m.timeoutsTotal.WithLabelValues(scope).Inc()
}
