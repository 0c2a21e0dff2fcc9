package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/agentgraph-go/graph/emit"
	"github.com/dshills/agentgraph-go/graph/store"
	"github.com/google/uuid"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunSucceeded RunStatus = "success"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunResult reports what happened during a run.
type RunResult struct {
	RunID  string    `json:"run_id"`
	Status RunStatus `json:"status"`

	// Output is the value of the terminal node's output handle.
	Output any `json:"output,omitempty"`

	// Error is the failure reason for failed or cancelled runs.
	Error string `json:"error,omitempty"`

	// Executed and Skipped list node IDs in the order they settled.
	Executed []string `json:"executed"`
	Skipped  []string `json:"skipped,omitempty"`

	// Outputs maps node ID to its output handle values after it executed.
	Outputs map[string]map[string]any `json:"outputs"`

	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the run reached a terminal node without a
// recorded fatal error.
func (r *RunResult) Succeeded() bool {
	return r != nil && r.Status == RunSucceeded
}

// Engine executes graphs built from a Registry.
//
// One run executes every node at most once, sequentially, in dependency
// order. Each node is evaluated before it runs:
//   - a wired condition handle that is falsy, or whose producer was skipped,
//     skips the node;
//   - a node whose producers were all skipped is skipped;
//   - otherwise the node executes and its outputs are propagated along its
//     outgoing edges.
//
// The run stops after a terminal (response) node executes, when no node is
// left, or as soon as a node fails. A node fails by returning an error,
// panicking, or recording an error in GlobalParameters.
//
// An Engine is safe for concurrent use across different graphs. Runs of the
// same graph are serialized.
//
// Example:
//
//	registry := nodes.NewRegistry(services)
//	engine, _ := graph.NewEngine(registry, graph.WithEmitter(emit.NewLogEmitter(os.Stderr, false)))
//
//	params := graph.NewGlobalParameters(map[string]string{"openai": os.Getenv("OPENAI_API_KEY")})
//	result, err := engine.Run(ctx, g, params, graph.RunRequest{Input: "hello"})
type Engine struct {
	registry *Registry
	opts     Options
}

// NewEngine creates an engine that resolves node behaviors in registry.
func NewEngine(registry *Registry, options ...Option) (*Engine, error) {
	if registry == nil {
		return nil, &EngineError{Message: "registry is required", Code: "MISSING_REGISTRY"}
	}
	cfg := &engineConfig{}
	for _, opt := range options {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.opts.Emitter == nil {
		cfg.opts.Emitter = emit.NewNullEmitter()
	}
	if cfg.opts.Logger == nil {
		cfg.opts.Logger = slog.Default()
	}
	return &Engine{registry: registry, opts: cfg.opts}, nil
}

// Registry returns the engine's node catalog.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Plan validates g against the registry and returns the execution order.
//
// Returns error if a node type is not registered (UNKNOWN_NODE_TYPE) or the
// graph has a cycle (GRAPH_CYCLE).
func (e *Engine) Plan(g *Graph) ([]string, error) {
	if g == nil {
		return nil, &EngineError{Message: "graph is required", Code: "MISSING_GRAPH"}
	}
	for _, n := range g.Nodes() {
		if _, ok := e.registry.Lookup(n.Type); !ok {
			return nil, &EngineError{Message: "node " + n.ID + " has unknown type " + n.Type, Code: "UNKNOWN_NODE_TYPE"}
		}
	}
	return g.TopologicalOrder()
}

// Run executes g once.
//
// Configuration problems (unknown node type, cycle) are returned as
// *EngineError before any node runs, with a nil result. Otherwise the result
// is always returned; the error is a *RunError when the run did not succeed.
//
// params supplies credentials only. Each run records its fatal error in a
// slot of its own, so params is never modified and may be shared by
// concurrent runs.
func (e *Engine) Run(ctx context.Context, g *Graph, params *GlobalParameters, req RunRequest) (*RunResult, error) {
	order, err := e.Plan(g)
	if err != nil {
		return nil, err
	}

	g.running.Lock()
	defer g.running.Unlock()

	params = params.scoped()

	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	if e.opts.RunWallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RunWallClockBudget)
		defer cancel()
	}

	r := &runner{
		engine: e,
		g:      g,
		params: params,
		sched:  newScheduler(g, order),
		run: &Run{
			ID:        req.RunID,
			Request:   req,
			StartedAt: time.Now(),
			Costs:     e.newRunCosts(req.RunID),
			Logger:    e.opts.Logger.With("run_id", req.RunID),
		},
	}
	r.result = &RunResult{
		RunID:     req.RunID,
		Outputs:   make(map[string]map[string]any),
		StartedAt: r.run.StartedAt,
	}

	for _, n := range g.Nodes() {
		n.resetRunValues()
	}

	return r.execute(ContextWithRun(ctx, r.run))
}

func (e *Engine) newRunCosts(runID string) *CostTracker {
	ct := NewCostTracker(runID, "USD")
	if e.opts.CostTracker != nil {
		ct.Pricing = e.opts.CostTracker.pricingCopy()
	}
	return ct
}

// runner holds the state of one run.
type runner struct {
	engine *Engine
	g      *Graph
	params *GlobalParameters
	sched  *scheduler
	run    *Run
	result *RunResult

	step     int
	executed int
	terminal bool
}

func (r *runner) emit(ev emit.Event) {
	ev.RunID = r.run.ID
	r.engine.opts.Emitter.Emit(ev)
}

func (r *runner) saveStep(ctx context.Context, rec store.StepRecord) {
	st := r.engine.opts.Store
	if st == nil {
		return
	}
	rec.RunID = r.run.ID
	if err := st.SaveStep(context.WithoutCancel(ctx), rec); err != nil {
		r.run.Logger.Warn("failed to save step", "node_id", rec.NodeID, "error", err)
	}
}

func (r *runner) execute(ctx context.Context) (*RunResult, error) {
	r.emit(emit.Event{Msg: emit.MsgRunStart, Meta: map[string]interface{}{
		"nodes": len(r.sched.order),
		"input": r.run.Request.Input,
	}})

	failure := r.loop(ctx)
	return r.finish(ctx, failure)
}

// loop drives the scheduler until the run settles. It returns the failure
// that stopped the run, or nil.
func (r *runner) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, act, reason, ok := r.sched.next()
		if !ok {
			if pending := r.sched.pending(); pending > 0 {
				return &EngineError{
					Message: fmt.Sprintf("%d nodes could not become ready", pending),
					Code:    "NO_PROGRESS",
				}
			}
			return nil
		}

		n, _ := r.g.Node(id)
		r.step++

		if act == Skip {
			r.skip(ctx, n, reason)
			continue
		}

		if limit := r.engine.opts.MaxNodes; limit > 0 && r.executed >= limit {
			return &EngineError{
				Message: fmt.Sprintf("run exceeded limit of %d executed nodes", limit),
				Code:    "MAX_NODES_EXCEEDED",
			}
		}

		if err := r.runNode(ctx, n); err != nil {
			return err
		}
		if r.terminal {
			return nil
		}
	}
}

func (r *runner) skip(ctx context.Context, n *Node, reason string) {
	r.sched.markSkipped(n.ID)
	r.result.Skipped = append(r.result.Skipped, n.ID)
	r.emit(emit.Event{Step: r.step, NodeID: n.ID, NodeType: n.Type, Msg: emit.MsgNodeSkipped,
		Meta: map[string]interface{}{"reason": reason}})
	r.engine.opts.Metrics.IncrementSkipped(n.Type, reason)
	r.saveStep(ctx, store.StepRecord{Step: r.step, NodeID: n.ID, NodeType: n.Type,
		Status: store.StepSkipped, Error: reason})
}

func (r *runner) runNode(ctx context.Context, n *Node) error {
	d, _ := r.engine.registry.Lookup(n.Type)
	metrics := r.engine.opts.Metrics

	r.emit(emit.Event{Step: r.step, NodeID: n.ID, NodeType: n.Type, Msg: emit.MsgNodeStart})
	metrics.nodeStarted()
	start := time.Now()

	err := invoke(ctx, d.Behavior, n, r.params, nodeTimeout(n, r.engine.opts.DefaultNodeTimeout))

	elapsed := time.Since(start)
	metrics.nodeFinished()
	r.executed++

	if err == nil && r.params.Failed() {
		err = errors.New(r.params.Err())
	}
	if err != nil {
		status := "error"
		var ee *EngineError
		switch {
		case errors.As(err, &ee) && ee.Code == "NODE_TIMEOUT":
			status = "timeout"
		case ctx.Err() != nil:
			status = "cancelled"
		}
		metrics.RecordNodeLatency(n.Type, elapsed, status)
		r.emit(emit.Event{Step: r.step, NodeID: n.ID, NodeType: n.Type, Msg: emit.MsgNodeError,
			Meta: map[string]interface{}{"error": err.Error(), "duration_ms": elapsed.Milliseconds()}})
		r.saveStep(ctx, store.StepRecord{Step: r.step, NodeID: n.ID, NodeType: n.Type,
			Status: store.StepFailed, Error: err.Error(), Duration: elapsed})

		if ctx.Err() != nil && status == "cancelled" {
			return ctx.Err()
		}
		if r.params.Failed() {
			return err
		}
		return &NodeError{NodeID: n.ID, NodeType: n.Type, Cause: err}
	}

	r.sched.markExecuted(n.ID)
	r.sched.propagate(n)
	outputs := n.outputs()
	r.result.Executed = append(r.result.Executed, n.ID)
	r.result.Outputs[n.ID] = outputs

	metrics.RecordNodeLatency(n.Type, elapsed, "success")
	r.emit(emit.Event{Step: r.step, NodeID: n.ID, NodeType: n.Type, Msg: emit.MsgNodeEnd,
		Meta: map[string]interface{}{"duration_ms": elapsed.Milliseconds()}})
	r.saveStep(ctx, store.StepRecord{Step: r.step, NodeID: n.ID, NodeType: n.Type,
		Status: store.StepExecuted, Outputs: outputs, Duration: elapsed})

	if d.Terminal {
		r.terminal = true
		r.result.Output = n.Value("output")
	}
	return nil
}

// finish settles the run outcome, records it and builds the returned error.
func (r *runner) finish(ctx context.Context, failure error) (*RunResult, error) {
	res := r.result
	res.Duration = time.Since(res.StartedAt)
	res.InputTokens, res.OutputTokens = r.run.Costs.GetTokenUsage()
	res.CostUSD = r.run.Costs.GetTotalCost()

	var runErr *RunError
	switch {
	case failure != nil && errors.Is(failure, context.Canceled):
		res.Status = RunCancelled
		res.Error = "run cancelled"
		runErr = &RunError{RunID: res.RunID, Status: RunCancelled, Reason: res.Error, Cause: failure}
	case failure != nil && errors.Is(failure, context.DeadlineExceeded):
		res.Status = RunFailed
		res.Error = "run exceeded wall clock budget"
		runErr = &RunError{RunID: res.RunID, Status: RunFailed, Reason: res.Error, Cause: failure}
	case r.params.Failed():
		res.Status = RunFailed
		res.Error = r.params.Err()
		runErr = &RunError{RunID: res.RunID, Status: RunFailed, Reason: res.Error, Cause: failure}
	case failure != nil:
		res.Status = RunFailed
		res.Error = failure.Error()
		runErr = &RunError{RunID: res.RunID, Status: RunFailed, Reason: res.Error, Cause: failure}
	case !r.terminal:
		res.Status = RunFailed
		res.Error = ErrNoResponse.Error()
		runErr = &RunError{RunID: res.RunID, Status: RunFailed, Reason: res.Error, Cause: ErrNoResponse}
	default:
		res.Status = RunSucceeded
	}

	if shared := r.engine.opts.CostTracker; shared != nil {
		shared.Merge(r.run.Costs)
	}
	for model, calls := range tokensByModel(r.run.Costs) {
		r.engine.opts.Metrics.AddTokens(model, calls[0], calls[1])
	}
	r.engine.opts.Metrics.RecordRun(string(res.Status), res.Duration)

	if st := r.engine.opts.Store; st != nil {
		// Record the outcome even when ctx has been cancelled.
		saveCtx := context.WithoutCancel(ctx)
		if err := st.SaveRun(saveCtx, store.RunRecord{
			RunID:      res.RunID,
			Status:     string(res.Status),
			Input:      r.run.Request.Input,
			Output:     res.Output,
			Error:      res.Error,
			StartedAt:  res.StartedAt,
			FinishedAt: res.StartedAt.Add(res.Duration),
		}); err != nil {
			r.run.Logger.Warn("failed to save run", "error", err)
		}
	}

	meta := map[string]interface{}{
		"status":      string(res.Status),
		"duration_ms": res.Duration.Milliseconds(),
		"executed":    len(res.Executed),
		"skipped":     len(res.Skipped),
	}
	if res.Error != "" {
		meta["error"] = res.Error
	}
	if res.CostUSD > 0 {
		meta["cost_usd"] = res.CostUSD
	}
	r.emit(emit.Event{Msg: emit.MsgRunEnd, Meta: meta})

	if runErr != nil {
		return res, runErr
	}
	return res, nil
}

// tokensByModel sums [input, output] tokens per model.
func tokensByModel(ct *CostTracker) map[string][2]int64 {
	out := make(map[string][2]int64)
	for _, c := range ct.GetCallHistory() {
		t := out[c.Model]
		t[0] += int64(c.InputTokens)
		t[1] += int64(c.OutputTokens)
		out[c.Model] = t
	}
	return out
}
