package graph

import (
	"log/slog"
	"time"

	"github.com/dshills/agentgraph-go/graph/emit"
	"github.com/dshills/agentgraph-go/graph/store"
)

// Options configures Engine execution behavior.
//
// Zero values are valid: no limits, no timeouts, events and history discarded.
type Options struct {
	// MaxNodes bounds how many nodes may execute in one run. 0 means no limit.
	// Exceeding it fails the run with MAX_NODES_EXCEEDED.
	MaxNodes int

	// DefaultNodeTimeout bounds each node execution unless the node sets its
	// own "nodeTimeoutMs" parameter. 0 means no timeout.
	DefaultNodeTimeout time.Duration

	// RunWallClockBudget bounds a whole run. 0 means no budget.
	RunWallClockBudget time.Duration

	// Emitter receives run and node events.
	Emitter emit.Emitter

	// Store persists run history.
	Store store.Store

	// Metrics records Prometheus metrics.
	Metrics *PrometheusMetrics

	// CostTracker accumulates LLM usage across runs.
	CostTracker *CostTracker

	// Logger is handed to node behaviors through the run context.
	Logger *slog.Logger
}

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine, err := graph.NewEngine(registry,
//	    graph.WithEmitter(emit.NewLogEmitter(os.Stderr, false)),
//	    graph.WithDefaultNodeTimeout(30*time.Second),
//	    graph.WithMaxNodes(200),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before they are applied to an Engine.
type engineConfig struct {
	opts Options
}

// WithOptions replaces the whole option set. Later options still apply on top.
func WithOptions(o Options) Option {
	return func(cfg *engineConfig) error {
		cfg.opts = o
		return nil
	}
}

// WithMaxNodes limits how many nodes may execute in one run.
func WithMaxNodes(n int) Option {
	return func(cfg *engineConfig) error {
		if n < 0 {
			return &EngineError{Message: "max nodes cannot be negative", Code: "INVALID_OPTION"}
		}
		cfg.opts.MaxNodes = n
		return nil
	}
}

// WithDefaultNodeTimeout sets the maximum execution time for nodes without
// their own "nodeTimeoutMs" parameter.
//
// When exceeded, the node's context is cancelled, the node is abandoned and
// the run fails with NODE_TIMEOUT.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return &EngineError{Message: "node timeout cannot be negative", Code: "INVALID_OPTION"}
		}
		cfg.opts.DefaultNodeTimeout = d
		return nil
	}
}

// WithRunWallClockBudget sets the maximum total execution time for Run.
func WithRunWallClockBudget(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return &EngineError{Message: "run budget cannot be negative", Code: "INVALID_OPTION"}
		}
		cfg.opts.RunWallClockBudget = d
		return nil
	}
}

// WithEmitter sets the observability event receiver.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Emitter = e
		return nil
	}
}

// WithStore enables run history persistence.
//
// Example:
//
//	st, _ := store.NewSQLiteStore("./agentgraph.db")
//	engine, _ := graph.NewEngine(registry, graph.WithStore(st))
func WithStore(s store.Store) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Store = s
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine, _ := graph.NewEngine(nodes, graph.WithMetrics(metrics))
//
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Metrics = metrics
		return nil
	}
}

// WithCostTracker accumulates LLM token usage and cost across every run of
// the engine. Each run also reports its own usage in RunResult.
func WithCostTracker(tracker *CostTracker) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.CostTracker = tracker
		return nil
	}
}

// WithLogger sets the logger node behaviors receive through the run context.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Logger = logger
		return nil
	}
}
