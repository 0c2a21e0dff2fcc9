package nodes

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/knowledge"
	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/dshills/agentgraph-go/graph/relay"
	"github.com/dshills/agentgraph-go/graph/search"
	"github.com/stretchr/testify/require"
)

// fixture bundles mocked services and the registry built on them.
type fixture struct {
	t        testing.TB
	chat     *model.MockChatModel
	embedder *model.MockEmbedder
	engine   *search.MockEngine
	kb       *knowledge.MemStore
	relay    *relay.MockRelay
	reg      *graph.Registry

	modelCalls  []model.Selector
	searchCalls []string
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		chat:     &model.MockChatModel{},
		embedder: &model.MockEmbedder{Vector: []float32{1, 0}},
		engine:   &search.MockEngine{},
		kb:       knowledge.NewMemStore(),
		relay:    &relay.MockRelay{},
	}
	f.reg = NewRegistry(Services{
		Models: func(sel model.Selector, _ string) (model.ChatModel, error) {
			f.modelCalls = append(f.modelCalls, sel)
			return f.chat, nil
		},
		Embedders: func(string, string) (model.Embedder, error) {
			return f.embedder, nil
		},
		Search: func(name, _ string) (search.Engine, error) {
			f.searchCalls = append(f.searchCalls, name)
			return f.engine, nil
		},
		Knowledge: f.kb,
		Relay:     f.relay,
	})
	return f
}

// node creates a node of the given type with parameter overrides.
func (f *fixture) node(nodeType string, params map[string]any) *graph.Node {
	f.t.Helper()
	n, err := f.reg.Create(graph.New(), nodeType)
	require.NoError(f.t, err)
	for k, v := range params {
		n.SetParam(k, v)
	}
	return n
}

// exec runs a node's behavior directly inside a run context.
func (f *fixture) exec(n *graph.Node, params *graph.GlobalParameters) (*graph.Run, error) {
	f.t.Helper()
	d, ok := f.reg.Lookup(n.Type)
	require.True(f.t, ok)
	run := &graph.Run{
		ID:     "test-run",
		Costs:  graph.NewCostTracker("test-run", "USD"),
		Logger: slog.New(slog.DiscardHandler),
	}
	ctx := graph.ContextWithRun(context.Background(), run)
	return run, d.Behavior.Execute(ctx, n, params)
}

func keys(kv ...string) *graph.GlobalParameters {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return graph.NewGlobalParameters(m)
}
