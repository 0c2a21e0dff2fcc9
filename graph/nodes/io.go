package nodes

import (
	"context"

	"github.com/dshills/agentgraph-go/graph"
)

func requestDescriptor() graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeRequest,
		Title:       "Request",
		Category:    CategoryIO,
		Description: "Exposes the text and values that triggered the run.",
		Create: func(*graph.Graph) *graph.Node {
			return graph.NewNode(graph.NewNodeID(), TypeRequest,
				graph.Out("input", graph.TypeString),
				graph.Out("values", graph.TypeUnknown))
		},
		Behavior: graph.BehaviorFunc(func(ctx context.Context, n *graph.Node, _ *graph.GlobalParameters) error {
			req := graph.RunFromContext(ctx).Request
			n.Set("input", req.Input)
			n.Set("values", req.Values)
			return nil
		}),
	}
}

func responseDescriptor() graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeResponse,
		Title:       "Response",
		Category:    CategoryIO,
		Description: "Ends the run; its input becomes the run output.",
		Terminal:    true,
		Create: func(*graph.Graph) *graph.Node {
			return graph.NewNode(graph.NewNodeID(), TypeResponse,
				graph.In("input", graph.TypeUnknown),
				graph.Out("output", graph.TypeUnknown))
		},
		Behavior: graph.BehaviorFunc(func(_ context.Context, n *graph.Node, _ *graph.GlobalParameters) error {
			n.Set("output", n.Value("input"))
			return nil
		}),
	}
}

func textDescriptor() graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeText,
		Title:       "Text",
		Category:    CategoryData,
		Description: "Emits a fixed text authored with the agent.",
		Create: func(*graph.Graph) *graph.Node {
			n := graph.NewNode(graph.NewNodeID(), TypeText, graph.Out("output", graph.TypeString))
			n.SetParam("text", "")
			return n
		},
		Behavior: graph.BehaviorFunc(func(_ context.Context, n *graph.Node, _ *graph.GlobalParameters) error {
			n.Set("output", n.StringParam("text", ""))
			return nil
		}),
	}
}

func displayDescriptor() graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeDisplay,
		Title:       "Display",
		Category:    CategoryData,
		Description: "Passes its input through and logs it.",
		Create: func(*graph.Graph) *graph.Node {
			return graph.NewNode(graph.NewNodeID(), TypeDisplay,
				graph.In("input", graph.TypeUnknown),
				graph.Out("output", graph.TypeUnknown))
		},
		Behavior: graph.BehaviorFunc(func(ctx context.Context, n *graph.Node, _ *graph.GlobalParameters) error {
			v := n.Value("input")
			runLogger(ctx, n).Debug("display", "value", v)
			n.Set("output", v)
			return nil
		}),
	}
}
