package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/agentgraph-go/graph/emit"
	"github.com/dshills/agentgraph-go/graph/store"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, reg *Registry, opts ...Option) (*Engine, *emit.BufferedEmitter) {
	t.Helper()
	events := emit.NewBufferedEmitter()
	engine, err := NewEngine(reg, append([]Option{WithEmitter(events)}, opts...)...)
	require.NoError(t, err)
	return engine, events
}

func TestEngine_LinearRun(t *testing.T) {
	calls := &callLog{}
	b := newBuilder(t, newTestRegistry(nil, calls))
	b.node("src", "source", map[string]any{"value": "hello"})
	b.node("mid", "relay", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "mid", "in")
	b.wire("mid", "out", "out", "input")

	engine, events := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{RunID: "run-1"})
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.Equal(t, "hello", res.Output)
	assert.Equal(t, []string{"src", "mid", "out"}, res.Executed)
	assert.Equal(t, "hello", res.Outputs["mid"]["out"])
	assert.Equal(t, []string{"src", "mid", "out"}, events.NodeOrder("run-1"))

	history := events.GetHistory("run-1")
	require.NotEmpty(t, history)
	assert.Equal(t, emit.MsgRunStart, history[0].Msg)
	assert.Equal(t, emit.MsgRunEnd, history[len(history)-1].Msg)
	assert.Equal(t, "success", history[len(history)-1].Meta["status"])
}

func TestEngine_InsertionOrderTieBreak(t *testing.T) {
	calls := &callLog{}
	b := newBuilder(t, newTestRegistry(nil, calls))
	b.node("z", "source", map[string]any{"value": "Z"})
	b.node("a", "source", map[string]any{"value": "A"})
	b.node("j", "join", nil)
	b.node("out", "sink", nil)
	b.wire("z", "out", "j", "a")
	b.wire("a", "out", "j", "b")
	b.wire("j", "out", "out", "input")

	engine, _ := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "j", "out"}, calls.list())
	assert.Equal(t, "ZA", res.Output)
	assert.NotEmpty(t, res.RunID)
}

func TestEngine_ConditionGating(t *testing.T) {
	tests := []struct {
		name     string
		cond     any
		executed bool
	}{
		{"true passes", true, true},
		{"non-empty string passes", "yes", true},
		{"false skips", false, false},
		{"empty string skips", "", false},
		{"nil skips", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := &callLog{}
			b := newBuilder(t, newTestRegistry(nil, calls))
			b.node("data", "source", map[string]any{"value": "payload"})
			b.node("flag", "source", map[string]any{"value": tt.cond})
			b.node("gated", "relay", nil)
			b.node("after", "relay", nil)
			b.node("out", "sink", nil)
			b.wire("data", "out", "gated", "in")
			b.wire("flag", "out", "gated", "when")
			b.wire("gated", "out", "after", "in")
			b.wire("data", "out", "out", "input")

			engine, events := newTestEngine(t, b.reg)
			res, err := engine.Run(context.Background(), b.g, nil, RunRequest{RunID: "r"})
			require.NoError(t, err)

			if tt.executed {
				assert.Contains(t, res.Executed, "gated")
				assert.Contains(t, res.Executed, "after")
				assert.Empty(t, res.Skipped)
				return
			}
			assert.Equal(t, []string{"gated", "after"}, res.Skipped)
			assert.NotContains(t, calls.list(), "gated")

			skipped := events.GetHistoryWithFilter("r", emit.HistoryFilter{Msg: emit.MsgNodeSkipped})
			require.Len(t, skipped, 2)
			assert.Equal(t, SkipConditionFalse, skipped[0].Meta["reason"])
			assert.Equal(t, SkipProducersSkipped, skipped[1].Meta["reason"])

			gated, _ := b.g.Node("gated")
			assert.Nil(t, gated.Value("out"), "skipped node keeps default outputs")
		})
	}
}

func TestEngine_SkipDoesNotPropagateThroughLiveProducer(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("data", "source", map[string]any{"value": "x"})
	b.node("flag", "source", map[string]any{"value": false})
	b.node("gated", "relay", nil)
	b.node("j", "join", nil)
	b.node("out", "sink", nil)
	b.wire("data", "out", "gated", "in")
	b.wire("flag", "out", "gated", "when")
	b.wire("gated", "out", "j", "a")
	b.wire("data", "out", "j", "b")
	b.wire("j", "out", "out", "input")

	engine, _ := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gated"}, res.Skipped)
	assert.Equal(t, "x", res.Output)
}

func TestEngine_ConditionProducerSkipped(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("data", "source", map[string]any{"value": "x"})
	b.node("off", "source", map[string]any{"value": false})
	b.node("flagRelay", "relay", nil)
	b.node("gated", "relay", nil)
	b.node("out", "sink", nil)
	b.wire("data", "out", "flagRelay", "in")
	b.wire("off", "out", "flagRelay", "when")
	b.wire("data", "out", "gated", "in")
	b.wire("flagRelay", "out", "gated", "when")
	b.wire("data", "out", "out", "input")

	engine, events := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{RunID: "r"})
	require.NoError(t, err)
	assert.Equal(t, []string{"flagRelay", "gated"}, res.Skipped)

	skipped := events.GetHistoryWithFilter("r", emit.HistoryFilter{NodeID: "gated", Msg: emit.MsgNodeSkipped})
	require.Len(t, skipped, 1)
	assert.Equal(t, SkipConditionSkipped, skipped[0].Meta["reason"])
}

func TestEngine_StopsAtTerminal(t *testing.T) {
	calls := &callLog{}
	b := newBuilder(t, newTestRegistry(nil, calls))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("out", "sink", nil)
	b.node("late", "relay", nil)
	b.wire("src", "out", "out", "input")
	b.wire("src", "out", "late", "in")

	engine, _ := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "out"}, calls.list())
	assert.Equal(t, "v", res.Output)
}

func TestEngine_NoTerminalFails(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("src", "source", map[string]any{"value": "v"})

	engine, _ := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, RunFailed, res.Status)
	assert.Equal(t, []string{"src"}, res.Executed)
}

func TestEngine_NodeErrorAbortsRun(t *testing.T) {
	for _, nodeType := range []string{"fail", "panic"} {
		t.Run(nodeType, func(t *testing.T) {
			calls := &callLog{}
			b := newBuilder(t, newTestRegistry(nil, calls))
			b.node("bad", nodeType, nil)
			b.node("out", "sink", nil)
			b.wire("bad", "out", "out", "input")

			engine, events := newTestEngine(t, b.reg)
			res, err := engine.Run(context.Background(), b.g, nil, RunRequest{RunID: "r"})
			require.Error(t, err)

			var nodeErr *NodeError
			require.ErrorAs(t, err, &nodeErr)
			assert.Equal(t, "bad", nodeErr.NodeID)
			assert.Equal(t, RunFailed, res.Status)
			assert.NotContains(t, calls.list(), "out")
			assert.Len(t, events.GetHistoryWithFilter("r", emit.HistoryFilter{Msg: emit.MsgNodeError}), 1)
		})
	}
}

func TestEngine_FatalParameterError(t *testing.T) {
	calls := &callLog{}
	b := newBuilder(t, newTestRegistry(nil, calls))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("llm", "fatal", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "llm", "in")
	b.wire("llm", "out", "out", "input")

	params := NewGlobalParameters(nil)
	engine, _ := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, params, RunRequest{})
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "no model selected", runErr.Reason)
	assert.Equal(t, "no model selected", res.Error)
	assert.Equal(t, []string{"src", "llm"}, calls.list())

	// The fatal error belongs to the run, not to the caller's parameters.
	assert.False(t, params.Failed())

	b.g.RemoveNode("llm")
	b.wire("src", "out", "out", "input")
	res, err = engine.Run(context.Background(), b.g, params, RunRequest{})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
}

func TestEngine_NodeTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := newBuilder(t, newTestRegistry(release, nil))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("wait", "slow", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "wait", "in")
	b.wire("wait", "out", "out", "input")

	engine, _ := newTestEngine(t, b.reg, WithDefaultNodeTimeout(20*time.Millisecond))
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.Error(t, err)
	assert.Equal(t, "NODE_TIMEOUT", codeOf(err))
	assert.Equal(t, RunFailed, res.Status)
}

func TestEngine_TimedOutNodeDoesNotLeakIntoNextRun(t *testing.T) {
	unblock := make(chan struct{})
	wrote := make(chan struct{})
	var calls int
	reg := newTestRegistry(nil, nil)
	reg.MustRegister(Descriptor{
		Type:   "late",
		Create: func(*Graph) *Node { return NewNode("", "late", Out("out", TypeString)) },
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, p *GlobalParameters) error {
			calls++
			if calls > 1 {
				return nil
			}
			<-unblock
			n.Set("out", "stale")
			p.Failf("late failure")
			close(wrote)
			return nil
		}),
	})

	b := newBuilder(t, reg)
	b.node("a", "late", map[string]any{"nodeTimeoutMs": 10})
	b.node("b", "source", map[string]any{"value": "fresh"})
	b.node("j", "join", nil)
	b.node("out", "sink", nil)
	b.wire("a", "out", "j", "a")
	b.wire("b", "out", "j", "b")
	b.wire("j", "out", "out", "input")

	params := NewGlobalParameters(nil)
	engine, _ := newTestEngine(t, b.reg)
	_, err := engine.Run(context.Background(), b.g, params, RunRequest{})
	require.Error(t, err)
	assert.Equal(t, "NODE_TIMEOUT", codeOf(err))

	// The abandoned call finishes only after the first run has returned.
	close(unblock)
	<-wrote

	res, err := engine.Run(context.Background(), b.g, params, RunRequest{})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Nil(t, res.Outputs["a"]["out"])
	assert.Equal(t, "fresh", res.Output)
	assert.False(t, params.Failed())
}

func TestEngine_SharedParametersAcrossConcurrentRuns(t *testing.T) {
	reg := newTestRegistry(nil, nil)
	bad := newBuilder(t, reg)
	bad.node("src", "source", map[string]any{"value": "v"})
	bad.node("llm", "fatal", nil)
	bad.node("out", "sink", nil)
	bad.wire("src", "out", "llm", "in")
	bad.wire("llm", "out", "out", "input")

	good := newBuilder(t, reg)
	good.node("src", "source", map[string]any{"value": "v"})
	good.node("out", "sink", nil)
	good.wire("src", "out", "out", "input")

	params := NewGlobalParameters(map[string]string{"openai": "sk"})
	engine, _ := newTestEngine(t, reg)

	var wg sync.WaitGroup
	goodResults := make([]*RunResult, 8)
	for i := range goodResults {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = engine.Run(context.Background(), bad.g, params, RunRequest{})
		}()
		go func(i int) {
			defer wg.Done()
			goodResults[i], _ = engine.Run(context.Background(), good.g, params, RunRequest{})
		}(i)
	}
	wg.Wait()

	for _, res := range goodResults {
		require.NotNil(t, res)
		assert.True(t, res.Succeeded(), res.Error)
	}
	assert.False(t, params.Failed())
	key, ok := params.APIKey("openai")
	assert.True(t, ok)
	assert.Equal(t, "sk", key)
}

func TestEngine_RunWallClockBudget(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := newBuilder(t, newTestRegistry(release, nil))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("wait", "slow", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "wait", "in")
	b.wire("wait", "out", "out", "input")

	engine, _ := newTestEngine(t, b.reg, WithRunWallClockBudget(20*time.Millisecond))
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, RunFailed, res.Status)
	assert.Equal(t, "run exceeded wall clock budget", res.Error)
	assert.Equal(t, []string{"src"}, res.Executed)
}

func TestEngine_CancellationAbandonsInFlightNode(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := newBuilder(t, newTestRegistry(release, nil))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("wait", "slow", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "wait", "in")
	b.wire("wait", "out", "out", "input")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	engine, _ := newTestEngine(t, b.reg)
	start := time.Now()
	res, err := engine.Run(ctx, b.g, nil, RunRequest{})
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunCancelled, res.Status)
	assert.NotContains(t, res.Outputs, "wait")
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	calls := &callLog{}
	b := newBuilder(t, newTestRegistry(nil, calls))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("out", "sink", nil)
	b.wire("src", "out", "out", "input")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine, _ := newTestEngine(t, b.reg)
	res, err := engine.Run(ctx, b.g, nil, RunRequest{})
	require.Error(t, err)
	assert.Equal(t, RunCancelled, res.Status)
	assert.Empty(t, calls.list())
}

func TestEngine_MaxNodes(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("mid", "relay", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "mid", "in")
	b.wire("mid", "out", "out", "input")

	engine, _ := newTestEngine(t, b.reg, WithMaxNodes(2))
	_, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	assert.Equal(t, "MAX_NODES_EXCEEDED", codeOf(err))
}

func TestEngine_RejectsInvalidGraphs(t *testing.T) {
	reg := newTestRegistry(nil, nil)

	t.Run("unknown type", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddNode(NewNode("x", "mystery")))
		engine, _ := newTestEngine(t, reg)
		res, err := engine.Run(context.Background(), g, nil, RunRequest{})
		assert.Nil(t, res)
		assert.Equal(t, "UNKNOWN_NODE_TYPE", codeOf(err))
	})

	t.Run("cycle", func(t *testing.T) {
		calls := &callLog{}
		b := newBuilder(t, newTestRegistry(nil, calls))
		b.node("a", "relay", nil)
		b.node("b", "relay", nil)
		b.wire("a", "out", "b", "in")
		b.wire("b", "out", "a", "in")
		engine, _ := newTestEngine(t, b.reg)
		_, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
		assert.Equal(t, "GRAPH_CYCLE", codeOf(err))
		assert.Empty(t, calls.list())
	})
}

func TestEngine_RunsAreIdempotent(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("a", "source", map[string]any{"value": "1"})
	b.node("b", "source", map[string]any{"value": "2"})
	b.node("j", "join", nil)
	b.node("out", "sink", nil)
	b.wire("a", "out", "j", "a")
	b.wire("b", "out", "j", "b")
	b.wire("j", "out", "out", "input")

	engine, _ := newTestEngine(t, b.reg)
	first, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, first.Executed, second.Executed)
	assert.Equal(t, first.Outputs, second.Outputs)
	assert.Equal(t, "12", second.Output)
}

func TestEngine_ResetsNonPersistentInputs(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("src", "source", map[string]any{"value": "v"})
	mid := b.node("mid", "relay", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "out", "input")

	mid.Set("in", "stale")
	engine, _ := newTestEngine(t, b.reg)
	_, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)
	assert.Nil(t, mid.Value("in"))
}

func TestEngine_FanInLastEdgeWins(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("first", "source", map[string]any{"value": "first"})
	b.node("second", "source", map[string]any{"value": "second"})
	b.node("out", "sink", nil)
	b.wire("first", "out", "out", "input")
	b.wire("second", "out", "out", "input")

	engine, _ := newTestEngine(t, b.reg)
	res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Output)
}

func TestEngine_RecordsHistory(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("flag", "source", map[string]any{"value": false})
	b.node("gated", "relay", nil)
	b.node("out", "sink", nil)
	b.wire("src", "out", "gated", "in")
	b.wire("flag", "out", "gated", "when")
	b.wire("src", "out", "out", "input")

	st := store.NewMemStore()
	engine, _ := newTestEngine(t, b.reg, WithStore(st))
	_, err := engine.Run(context.Background(), b.g, nil, RunRequest{RunID: "hist", Input: "q"})
	require.NoError(t, err)

	run, err := st.LoadRun(context.Background(), "hist")
	require.NoError(t, err)
	assert.Equal(t, "success", run.Status)
	assert.Equal(t, "q", run.Input)
	assert.Equal(t, "v", run.Output)

	steps, err := st.LoadSteps(context.Background(), "hist")
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, store.StepSkipped, steps[2].Status)
	assert.Equal(t, "gated", steps[2].NodeID)
	assert.Equal(t, "v", steps[0].Outputs["out"])
}

func TestEngine_Metrics(t *testing.T) {
	b := newBuilder(t, newTestRegistry(nil, nil))
	b.node("src", "source", map[string]any{"value": "v"})
	b.node("out", "sink", nil)
	b.wire("src", "out", "out", "input")

	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)
	engine, _ := newTestEngine(t, b.reg, WithMetrics(metrics))
	_, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	runs := byName["agentgraph_runs_total"]
	require.NotNil(t, runs)
	require.Len(t, runs.GetMetric(), 1)
	assert.Equal(t, 1.0, runs.GetMetric()[0].GetCounter().GetValue())

	latency := byName["agentgraph_node_latency_ms"]
	require.NotNil(t, latency)
	assert.Len(t, latency.GetMetric(), 2, "one series per node type")

	assert.Equal(t, 0.0, byName["agentgraph_inflight_nodes"].GetMetric()[0].GetGauge().GetValue())
}

func TestEngine_CostTracking(t *testing.T) {
	reg := newTestRegistry(nil, nil)
	reg.MustRegister(Descriptor{
		Type:   "llm",
		Create: func(*Graph) *Node { return NewNode("", "llm", In("in", TypeUnknown), Out("out", TypeString)) },
		Behavior: BehaviorFunc(func(ctx context.Context, n *Node, _ *GlobalParameters) error {
			RunFromContext(ctx).Costs.RecordLLMCall("openai/gpt-4o", 1_000_000, 0, n.ID)
			n.Set("out", "answer")
			return nil
		}),
	})
	b := newBuilder(t, reg)
	b.node("llm", "llm", nil)
	b.node("out", "sink", nil)
	b.wire("llm", "out", "out", "input")

	shared := NewCostTracker("", "USD")
	engine, _ := newTestEngine(t, reg, WithCostTracker(shared))
	for i := 0; i < 2; i++ {
		res, err := engine.Run(context.Background(), b.g, nil, RunRequest{})
		require.NoError(t, err)
		assert.InDelta(t, 2.50, res.CostUSD, 1e-9)
		assert.Equal(t, int64(1_000_000), res.InputTokens)
	}
	assert.InDelta(t, 5.00, shared.GetTotalCost(), 1e-9)
	assert.Len(t, shared.GetCallHistory(), 2)
}

func TestEngine_RunContext(t *testing.T) {
	reg := NewRegistry()
	var seen *Run
	reg.MustRegister(Descriptor{
		Type:     "probe",
		Terminal: true,
		Create:   func(*Graph) *Node { return NewNode("", "probe", Out("output", TypeUnknown)) },
		Behavior: BehaviorFunc(func(ctx context.Context, n *Node, _ *GlobalParameters) error {
			seen = RunFromContext(ctx)
			n.Set("output", seen.Request.Values["k"])
			return nil
		}),
	})
	g := New()
	n, _ := reg.Create(g, "probe")
	require.NoError(t, g.AddNode(n))

	engine, _ := newTestEngine(t, reg)
	res, err := engine.Run(context.Background(), g, nil, RunRequest{RunID: "ctx", Input: "hi", Values: map[string]any{"k": 7}})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Output)
	require.NotNil(t, seen)
	assert.Equal(t, "ctx", seen.ID)
	assert.Equal(t, "hi", seen.Request.Input)
	assert.NotNil(t, seen.Logger)
}

func TestNewEngine_Options(t *testing.T) {
	_, err := NewEngine(nil)
	assert.Equal(t, "MISSING_REGISTRY", codeOf(err))

	_, err = NewEngine(NewRegistry(), WithMaxNodes(-1))
	assert.Equal(t, "INVALID_OPTION", codeOf(err))

	_, err = NewEngine(NewRegistry(), WithDefaultNodeTimeout(-time.Second))
	assert.True(t, errors.As(err, new(*EngineError)))
}
