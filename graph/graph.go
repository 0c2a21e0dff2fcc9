package graph

import (
	"sync"

	"github.com/google/uuid"
)

// Graph is an arena of nodes indexed by ID plus the edges between them.
//
// Insertion order is recorded and used as the scheduler's tie-breaker, which
// keeps runs of the same graph deterministic.
//
// A Graph is not safe for concurrent mutation. Handle values live on the
// nodes, so the engine serializes runs of the same graph.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge

	running sync.Mutex
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// NewNodeID returns a fresh random node ID.
func NewNodeID() string {
	return uuid.NewString()
}

// AddNode adds a node to the arena and seals its handle set.
//
// Returns error if:
//   - node is nil or its ID is empty
//   - a node with this ID already exists
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return &EngineError{Message: "node cannot be nil"}
	}
	if n.ID == "" {
		return &EngineError{Message: "node ID cannot be empty"}
	}
	if _, exists := g.nodes[n.ID]; exists {
		return &EngineError{Message: "duplicate node ID: " + n.ID, Code: "DUPLICATE_NODE"}
	}
	n.sealed = true
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// RemoveNode deletes a node and every edge incident to it.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)
	for i, nid := range g.order {
		if nid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	return true
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Connect wires an output handle to an input handle.
//
// Returns error if either node or handle does not exist, the handles point
// the wrong way, or the handle types are incompatible (TypeUnknown is a
// wildcard on either end; condition handles accept any source type).
func (g *Graph) Connect(source, sourceHandle, target, targetHandle string) (Edge, error) {
	src, ok := g.nodes[source]
	if !ok {
		return Edge{}, &EngineError{Message: "source node does not exist: " + source, Code: "NODE_NOT_FOUND"}
	}
	dst, ok := g.nodes[target]
	if !ok {
		return Edge{}, &EngineError{Message: "target node does not exist: " + target, Code: "NODE_NOT_FOUND"}
	}
	sh, ok := src.Fields[sourceHandle]
	if !ok {
		return Edge{}, &EngineError{Message: "handle " + sourceHandle + " not found on " + source, Code: "HANDLE_NOT_FOUND"}
	}
	th, ok := dst.Fields[targetHandle]
	if !ok {
		return Edge{}, &EngineError{Message: "handle " + targetHandle + " not found on " + target, Code: "HANDLE_NOT_FOUND"}
	}
	if sh.Direction != Output {
		return Edge{}, &EngineError{Message: source + "." + sourceHandle + " is not an output", Code: "HANDLE_DIRECTION"}
	}
	if th.Direction != Input {
		return Edge{}, &EngineError{Message: target + "." + targetHandle + " is not an input", Code: "HANDLE_DIRECTION"}
	}
	if !th.Condition && !sh.Type.CompatibleWith(th.Type) {
		return Edge{}, &EngineError{
			Message: source + "." + sourceHandle + " (" + string(sh.Type) + ") cannot feed " +
				target + "." + targetHandle + " (" + string(th.Type) + ")",
			Code: "HANDLE_TYPE_MISMATCH",
		}
	}

	e := Edge{
		ID:           uuid.NewString(),
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	}
	g.edges = append(g.edges, e)
	return e, nil
}

// Disconnect removes the edge with the given ID.
func (g *Graph) Disconnect(edgeID string) bool {
	for i, e := range g.edges {
		if e.ID == edgeID {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return true
		}
	}
	return false
}

// Incoming returns edges whose target is the given node, in insertion order.
func (g *Graph) Incoming(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns edges whose source is the given node, in insertion order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks that the graph is acyclic. Cycles are a configuration
// error: they are rejected before a run starts rather than retried.
func (g *Graph) Validate() error {
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}

// TopologicalOrder returns node IDs in dependency order, breaking ties by
// insertion order. It fails with GRAPH_CYCLE when the edges form a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.order))
	for _, e := range g.edges {
		indegree[e.Target]++
	}

	done := make(map[string]bool, len(g.order))
	out := make([]string, 0, len(g.order))
	for len(out) < len(g.order) {
		next := ""
		for _, id := range g.order {
			if !done[id] && indegree[id] == 0 {
				next = id
				break
			}
		}
		if next == "" {
			return nil, &EngineError{Message: "graph contains a cycle", Code: "GRAPH_CYCLE"}
		}
		done[next] = true
		out = append(out, next)
		for _, e := range g.edges {
			if e.Source == next {
				indegree[e.Target]--
			}
		}
	}
	return out, nil
}
