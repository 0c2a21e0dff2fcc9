package nodes

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Catalog(t *testing.T) {
	reg := NewRegistry(Services{})
	assert.Equal(t, []string{
		TypeAI, TypeAPI, TypeCombine, TypeDisplay, TypeMessage,
		TypeRequest, TypeResponse, TypeSchema, TypeSearch, TypeText,
	}, reg.Types())

	for _, typ := range reg.Types() {
		d, ok := reg.Lookup(typ)
		require.True(t, ok)
		assert.NotEmpty(t, d.Title, typ)
		assert.NotEmpty(t, d.Category, typ)
		assert.NotNil(t, d.Behavior, typ)
		assert.Equal(t, typ == TypeResponse, d.Terminal, typ)

		n, err := reg.Create(graph.New(), typ)
		require.NoError(t, err)
		assert.Equal(t, typ, n.Type)
		assert.NotEmpty(t, n.ID)
	}
}

// flow builds a graph from registry nodes with fixed IDs.
type flow struct {
	t   *testing.T
	f   *fixture
	g   *graph.Graph
	ids map[string]*graph.Node
}

func newFlow(t *testing.T, f *fixture) *flow {
	return &flow{t: t, f: f, g: graph.New(), ids: map[string]*graph.Node{}}
}

func (fl *flow) add(id, nodeType string, params map[string]any) *graph.Node {
	fl.t.Helper()
	n := fl.f.node(nodeType, params)
	n.ID = id
	require.NoError(fl.t, fl.g.AddNode(n))
	fl.ids[id] = n
	return n
}

func (fl *flow) wire(src, srcHandle, dst, dstHandle string) {
	fl.t.Helper()
	_, err := fl.g.Connect(src, srcHandle, dst, dstHandle)
	require.NoError(fl.t, err)
}

func (fl *flow) engine() *graph.Engine {
	fl.t.Helper()
	e, err := graph.NewEngine(fl.f.reg, graph.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(fl.t, err)
	return e
}

func TestEngine_AnswerFlowIsRepeatable(t *testing.T) {
	f := newFixture(t)
	f.chat.Responses = []model.ChatOut{{Text: "Paris", Usage: model.Usage{InputTokens: 12, OutputTokens: 1}}}

	fl := newFlow(t, f)
	fl.add("req", TypeRequest, nil)
	ai := fl.add("ai", TypeAI, nil)
	ai.Set("prompt", "Answer in one word.")
	fl.add("res", TypeResponse, nil)
	fl.wire("req", "input", "ai", "input")
	fl.wire("ai", "answer", "res", "input")

	e := fl.engine()
	params := keys(model.ProviderOpenAI, "sk-test")

	var results []*graph.RunResult
	for i := 0; i < 2; i++ {
		res, err := e.Run(context.Background(), fl.g, params, graph.RunRequest{Input: "Capital of France?"})
		require.NoError(t, err)
		results = append(results, res)
	}

	for _, res := range results {
		assert.True(t, res.Succeeded())
		assert.Equal(t, "Paris", res.Output)
		assert.Equal(t, []string{"req", "ai", "res"}, res.Executed)
		assert.Equal(t, int64(12), res.InputTokens)
	}
	assert.Equal(t, results[0].Outputs, results[1].Outputs)
	assert.Equal(t, "Answer in one word.", ai.String("prompt"), "persistent prompt survives runs")

	require.Equal(t, 2, f.chat.CallCount())
	for _, call := range f.chat.Calls {
		require.Len(t, call.Messages, 2)
		assert.Equal(t, "Answer in one word.", call.Messages[0].Content)
		assert.Equal(t, "Capital of France?", call.Messages[1].Content)
	}
}

func TestEngine_APIErrorRoutesToResponse(t *testing.T) {
	f := newFixture(t)
	fl := newFlow(t, f)
	fl.add("req", TypeRequest, nil)
	fl.add("api", TypeAPI, nil)
	fl.add("res", TypeResponse, nil)
	fl.wire("req", "input", "api", "body")
	fl.wire("api", "error", "res", "input")

	res, err := fl.engine().Run(context.Background(), fl.g, nil, graph.RunRequest{Input: "x"})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "endpoint URL is required", res.Output)
	assert.Zero(t, f.relay.CallCount())
}

func TestEngine_MissingModelKeyFailsRun(t *testing.T) {
	f := newFixture(t)
	fl := newFlow(t, f)
	fl.add("req", TypeRequest, nil)
	fl.add("ai", TypeAI, map[string]any{"model": "anthropic/claude-3-5-haiku-latest"})
	fl.add("res", TypeResponse, nil)
	fl.wire("req", "input", "ai", "input")
	fl.wire("ai", "answer", "res", "input")

	res, err := fl.engine().Run(context.Background(), fl.g, keys(model.ProviderOpenAI, "sk"), graph.RunRequest{Input: "hi"})
	require.Error(t, err)

	var runErr *graph.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, graph.RunFailed, res.Status)
	assert.Contains(t, res.Error, "no API key configured for provider anthropic")
	assert.Equal(t, []string{"req"}, res.Executed)
	assert.Zero(t, f.chat.CallCount())
}

func TestEngine_ConditionGatesAPICall(t *testing.T) {
	for _, tt := range []struct {
		flag  string
		calls int
	}{{"", 0}, {"go", 1}} {
		f := newFixture(t)
		fl := newFlow(t, f)
		fl.add("req", TypeRequest, nil)
		fl.add("flag", TypeText, map[string]any{"text": tt.flag})
		fl.add("api", TypeAPI, map[string]any{"endpoint": "https://example.com/hook", "method": "POST"})
		fl.add("res", TypeResponse, nil)
		fl.wire("req", "input", "api", "body")
		fl.wire("flag", "output", "api", "condition")
		fl.wire("req", "input", "res", "input")

		res, err := fl.engine().Run(context.Background(), fl.g, nil, graph.RunRequest{Input: "ping"})
		require.NoError(t, err)
		assert.Equal(t, "ping", res.Output)
		assert.Equal(t, tt.calls, f.relay.CallCount(), "flag %q", tt.flag)
		if tt.calls == 0 {
			assert.Equal(t, []string{"api"}, res.Skipped)
		}
	}
}
