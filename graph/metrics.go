package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects engine metrics, all namespaced "agentgraph_":
//
//  1. inflight_nodes (gauge): nodes currently executing across all runs.
//  2. node_latency_ms (histogram): node execution duration.
//     Labels: node_type, status (success/error/timeout/cancelled).
//  3. nodes_skipped_total (counter): nodes gated off. Labels: node_type, reason.
//  4. runs_total (counter): settled runs. Labels: status.
//  5. run_duration_ms (histogram): run duration. Labels: status.
//  6. llm_tokens_total (counter): model tokens. Labels: model, direction (input/output).
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine, _ := graph.NewEngine(nodes, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	inflightNodes prometheus.Gauge
	nodeLatency   *prometheus.HistogramVec
	nodesSkipped  *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	tokens        *prometheus.CounterVec

	registry prometheus.Registerer

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics creates and registers all engine metrics with the
// provided registry (prometheus.DefaultRegisterer when nil).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		registry: registry,
		enabled:  true,
	}

	pm.inflightNodes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentgraph",
		Name:      "inflight_nodes",
		Help:      "Current number of node behaviors executing",
	})

	pm.nodeLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentgraph",
		Name:      "node_latency_ms",
		Help:      "Node execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
	}, []string{"node_type", "status"})

	pm.nodesSkipped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgraph",
		Name:      "nodes_skipped_total",
		Help:      "Nodes gated off by a condition or skipped producers",
	}, []string{"node_type", "reason"})

	pm.runs = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgraph",
		Name:      "runs_total",
		Help:      "Settled runs by outcome",
	}, []string{"status"})

	pm.runDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentgraph",
		Name:      "run_duration_ms",
		Help:      "Run duration in milliseconds",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000, 120000},
	}, []string{"status"})

	pm.tokens = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgraph",
		Name:      "llm_tokens_total",
		Help:      "Model tokens consumed by node behaviors",
	}, []string{"model", "direction"})

	return pm
}

func (pm *PrometheusMetrics) isEnabled() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordNodeLatency observes one node execution.
func (pm *PrometheusMetrics) RecordNodeLatency(nodeType string, latency time.Duration, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.nodeLatency.WithLabelValues(nodeType, status).Observe(float64(latency.Milliseconds()))
}

// IncrementSkipped counts a skipped node.
func (pm *PrometheusMetrics) IncrementSkipped(nodeType, reason string) {
	if !pm.isEnabled() {
		return
	}
	pm.nodesSkipped.WithLabelValues(nodeType, reason).Inc()
}

// RecordRun counts a settled run and observes its duration.
func (pm *PrometheusMetrics) RecordRun(status string, duration time.Duration) {
	if !pm.isEnabled() {
		return
	}
	pm.runs.WithLabelValues(status).Inc()
	pm.runDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// AddTokens counts model tokens.
func (pm *PrometheusMetrics) AddTokens(model string, input, output int64) {
	if !pm.isEnabled() {
		return
	}
	if input > 0 {
		pm.tokens.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		pm.tokens.WithLabelValues(model, "output").Add(float64(output))
	}
}

// nodeStarted and nodeFinished track the inflight gauge.
func (pm *PrometheusMetrics) nodeStarted() {
	if pm.isEnabled() {
		pm.inflightNodes.Inc()
	}
}

func (pm *PrometheusMetrics) nodeFinished() {
	if pm.isEnabled() {
		pm.inflightNodes.Dec()
	}
}

// Disable temporarily disables metric recording.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

// Reset zeroes the gauges. Counters and histograms are cumulative and are
// not reset.
func (pm *PrometheusMetrics) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.inflightNodes.Set(0)
}
