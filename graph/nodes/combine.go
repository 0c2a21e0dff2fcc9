package nodes

import (
	"context"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/spf13/cast"
)

// Combine modes.
const (
	CombineConcat   = "concat"
	CombineNonEmpty = "nonempty"
)

func combineDescriptor() graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeCombine,
		Title:       "Combine",
		Category:    CategoryData,
		Description: "Concatenates two values or picks the first non-empty one.",
		Create: func(*graph.Graph) *graph.Node {
			n := graph.NewNode(graph.NewNodeID(), TypeCombine,
				graph.In("input1", graph.TypeUnknown).AsOptional(),
				graph.In("input2", graph.TypeUnknown).AsOptional(),
				graph.Out("result", graph.TypeUnknown))
			n.SetParam("mode", CombineConcat)
			return n
		},
		Behavior: graph.BehaviorFunc(executeCombine),
	}
}

func executeCombine(ctx context.Context, n *graph.Node, _ *graph.GlobalParameters) error {
	a, b := n.Value("input1"), n.Value("input2")
	mode := n.StringParam("mode", CombineConcat)

	switch mode {
	case CombineNonEmpty:
		if graph.Truthy(a) {
			n.Set("result", a)
		} else {
			n.Set("result", b)
		}
	case CombineConcat:
		n.Set("result", cast.ToString(a)+cast.ToString(b))
	default:
		runLogger(ctx, n).Warn("unknown combine mode, result left unset", "mode", mode)
	}
	return nil
}
