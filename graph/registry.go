package graph

import (
	"context"
	"sort"
	"sync"
)

// Behavior is the execution contract every node type implements.
//
// Execute reads the node's input handle values, does the node's work (often
// a remote call) and writes the node's output handles. Recoverable problems
// belong in a declared error output; a run-fatal problem is signalled with
// params.Fail. A returned error is treated as an uncaught failure and aborts
// the run.
type Behavior interface {
	Execute(ctx context.Context, node *Node, params *GlobalParameters) error
}

// BehaviorFunc is a function adapter that implements the Behavior interface.
type BehaviorFunc func(ctx context.Context, node *Node, params *GlobalParameters) error

// Execute implements Behavior for BehaviorFunc.
func (f BehaviorFunc) Execute(ctx context.Context, node *Node, params *GlobalParameters) error {
	return f(ctx, node, params)
}

// Descriptor is a registry entry: everything needed to create and run one
// node type.
type Descriptor struct {
	Type        string
	Title       string
	Category    string
	Description string

	// Create allocates a node with the type's default parameters and its full
	// handle set. The node ID is freshly generated.
	Create func(g *Graph) *Node

	// Behavior runs the node.
	Behavior Behavior

	// Terminal marks response nodes: executing one ends the run successfully.
	Terminal bool
}

// Registry is the catalog of node types, keyed by type tag.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Register adds a descriptor.
//
// Returns error if the type is empty, Create or Behavior is nil, or the type
// is already registered.
func (r *Registry) Register(d Descriptor) error {
	if d.Type == "" {
		return &EngineError{Message: "descriptor type cannot be empty", Code: "INVALID_DESCRIPTOR"}
	}
	if d.Create == nil || d.Behavior == nil {
		return &EngineError{Message: "descriptor " + d.Type + " needs Create and Behavior", Code: "INVALID_DESCRIPTOR"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[d.Type]; exists {
		return &EngineError{Message: "duplicate node type: " + d.Type, Code: "DUPLICATE_NODE_TYPE"}
	}
	r.entries[d.Type] = d
	return nil
}

// MustRegister is Register that panics on error. Intended for static catalogs.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for a node type.
func (r *Registry) Lookup(nodeType string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[nodeType]
	return d, ok
}

// Types returns all registered type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Create allocates a node of the given type. The node is not added to g.
func (r *Registry) Create(g *Graph, nodeType string) (*Node, error) {
	d, ok := r.Lookup(nodeType)
	if !ok {
		return nil, &EngineError{Message: "unknown node type: " + nodeType, Code: "UNKNOWN_NODE_TYPE"}
	}
	n := d.Create(g)
	if n.ID == "" {
		n.ID = NewNodeID()
	}
	n.Type = d.Type
	if n.Title == "" {
		n.Title = d.Title
	}
	return n, nil
}
