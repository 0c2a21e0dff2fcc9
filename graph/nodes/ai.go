package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/model"
)

// contextInstruction precedes the documents handed to an ai node.
const contextInstruction = "Answer using the information in the Context below. " +
	"If the Context does not contain the answer, say that you do not know."

func aiDescriptor(s Services) graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeAI,
		Title:       "AI",
		Category:    CategoryAI,
		Description: "Asks a language model, optionally grounded on documents.",
		Create: func(*graph.Graph) *graph.Node {
			n := graph.NewNode(graph.NewNodeID(), TypeAI,
				graph.In("prompt", graph.TypeString).AsPersistent(""),
				graph.In("input", graph.TypeString),
				graph.In("documents", graph.TypeDoc).AsOptional(),
				graph.Out("answer", graph.TypeString))
			n.SetParam("model", "openai/gpt-4o-mini")
			n.SetParam("temperature", 0.0)
			return n
		},
		Behavior: &aiBehavior{models: s.Models},
	}
}

type aiBehavior struct {
	models ModelFactory
}

// Execute implements graph.Behavior.
func (b *aiBehavior) Execute(ctx context.Context, n *graph.Node, params *graph.GlobalParameters) error {
	m, sel, ok := resolveModel(b.models, n, params)
	if !ok {
		return nil
	}

	messages := []model.Message{{Role: model.RoleSystem, Content: n.String("prompt")}}
	if docs := n.Documents("documents"); len(docs) > 0 {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: contextBlock(docs)})
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: n.String("input")})

	out, err := m.Chat(ctx, messages, model.CallOptions{
		Temperature: n.FloatParam("temperature", 0),
		MaxTokens:   n.IntParam("maxTokens", 0),
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		params.Failf("ai node %s: %s call failed: %v", n.ID, sel, err)
		return nil
	}

	recordUsage(ctx, n, sel, out.Usage)
	n.Set("answer", out.Text)
	return nil
}

// resolveModel turns the node's "model" parameter into a chat model. Every
// failure is run-fatal and recorded in params.
func resolveModel(models ModelFactory, n *graph.Node, params *graph.GlobalParameters) (model.ChatModel, model.Selector, bool) {
	sel, err := model.ParseSelector(n.StringParam("model", ""))
	if err != nil {
		params.Failf("%s node %s: %v", n.Type, n.ID, err)
		return nil, sel, false
	}
	key, ok := params.APIKey(sel.Provider)
	if !ok {
		params.Failf("%s node %s: no API key configured for provider %s", n.Type, n.ID, sel.Provider)
		return nil, sel, false
	}
	m, err := models(sel, key)
	if err != nil {
		params.Failf("%s node %s: %v", n.Type, n.ID, err)
		return nil, sel, false
	}
	return m, sel, true
}

func recordUsage(ctx context.Context, n *graph.Node, sel model.Selector, u model.Usage) {
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return
	}
	graph.RunFromContext(ctx).Costs.RecordLLMCall(sel.String(), u.InputTokens, u.OutputTokens, n.ID)
}

// contextBlock renders documents as grounding context for the model.
func contextBlock(docs []graph.Document) string {
	var b strings.Builder
	b.WriteString(contextInstruction)
	b.WriteString("\n\nContext:\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, firstString(d.Title, "Untitled"), d.Body)
		if src := firstString(d.Source, d.Ref); src != "" {
			fmt.Fprintf(&b, "Source: %s\n", src)
		}
	}
	return b.String()
}
