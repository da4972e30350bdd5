package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for workflow execution
// monitoring in production environments.
//
// Metrics exposed (all namespaced with "stategraph_"):
//
//  1. node_executions_total (counter): Node executions by node and status
//     (success, error, interrupt).
//  2. node_latency_ms (histogram): Node execution duration in milliseconds,
//     labeled by node. Buckets cover 1ms to 10s.
//  3. interrupts_total (counter): Workflow suspensions raised by nodes.
//  4. checkpoint_saves_total (counter): Checkpoint writes by status
//     (success, error).
//  5. active_runs (gauge): Workflow invocations currently executing.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	compiled, err := g.Compile(graph.WithMetrics(metrics))
//
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are nil-safe so the engine can call them unconditionally.
type Metrics struct {
	nodeExecutions  *prometheus.CounterVec
	nodeLatency     *prometheus.HistogramVec
	interrupts      prometheus.Counter
	checkpointSaves *prometheus.CounterVec
	activeRuns      prometheus.Gauge
}

// NewMetrics creates and registers all workflow metrics with the provided
// registry. A nil registry falls back to prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		nodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "node_executions_total",
			Help:      "Total node executions by node and status.",
		}, []string{"node", "status"}),

		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node"}),

		interrupts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "interrupts_total",
			Help:      "Total workflow suspensions raised by nodes.",
		}),

		checkpointSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "checkpoint_saves_total",
			Help:      "Total checkpoint writes by status.",
		}, []string{"status"}),

		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "stategraph",
			Name:      "active_runs",
			Help:      "Workflow invocations currently executing.",
		}),
	}
}

// ObserveNode records one node execution with its outcome and duration.
func (m *Metrics) ObserveNode(node, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.nodeExecutions.WithLabelValues(node, status).Inc()
	m.nodeLatency.WithLabelValues(node).Observe(float64(d.Milliseconds()))
}

// ObserveInterrupt records a workflow suspension.
func (m *Metrics) ObserveInterrupt() {
	if m == nil {
		return
	}
	m.interrupts.Inc()
}

// ObserveCheckpoint records a checkpoint write attempt.
func (m *Metrics) ObserveCheckpoint(status string) {
	if m == nil {
		return
	}
	m.checkpointSaves.WithLabelValues(status).Inc()
}

// RunStarted increments the active run gauge.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

// RunFinished decrements the active run gauge.
func (m *Metrics) RunFinished() {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
}
