package graph

import (
	"sort"

	"github.com/spf13/cast"
)

// Node is an instance of a registered node type within a Graph.
//
// Nodes own their handles. Handles are declared when the node is created and
// the set is sealed once the node is added to a graph; after that only handle
// values change. During a run a node is mutated only by its own behavior.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`

	// Parameters holds type-specific configuration (model, temperature, engine...).
	Parameters map[string]any `json:"parameters,omitempty"`

	// Fields maps handle name to handle.
	Fields map[string]*Handle `json:"fields"`

	// Conditionable reports whether the node accepts a gating condition handle.
	Conditionable bool `json:"conditionable,omitempty"`

	order  []string
	sealed bool
}

// NewNode allocates a node with the given handles. It panics on duplicate
// handle names, which is a programming error in a node descriptor.
func NewNode(id, nodeType string, handles ...Handle) *Node {
	n := &Node{
		ID:         id,
		Type:       nodeType,
		Parameters: make(map[string]any),
		Fields:     make(map[string]*Handle, len(handles)),
	}
	for _, h := range handles {
		if err := n.DeclareHandle(h); err != nil {
			panic(err)
		}
	}
	return n
}

// DeclareHandle adds a handle to the node. It fails when the name is already
// taken, the type tag is unknown, or the node has been sealed by a graph.
func (n *Node) DeclareHandle(h Handle) error {
	if n.sealed {
		return &EngineError{Message: "node " + n.ID + ": " + ErrHandlesSealed.Error(), Code: "HANDLES_SEALED"}
	}
	if h.Name == "" {
		return &EngineError{Message: "handle name cannot be empty", Code: "INVALID_HANDLE"}
	}
	if !h.Type.Valid() {
		return &EngineError{Message: "unknown handle type " + string(h.Type) + " for " + h.Name, Code: "INVALID_HANDLE"}
	}
	if _, exists := n.Fields[h.Name]; exists {
		return &EngineError{Message: "duplicate handle " + h.Name + " on node " + n.ID, Code: "DUPLICATE_HANDLE"}
	}
	if h.Condition && h.Direction != Input {
		return &EngineError{Message: "condition handle " + h.Name + " must be an input", Code: "INVALID_HANDLE"}
	}
	if h.Condition {
		n.Conditionable = true
	}
	if n.Fields == nil {
		n.Fields = make(map[string]*Handle)
	}
	hc := h
	n.Fields[h.Name] = &hc
	n.order = append(n.order, h.Name)
	return nil
}

// Handle returns the named handle.
func (n *Node) Handle(name string) (*Handle, bool) {
	h, ok := n.Fields[name]
	return h, ok
}

// HandleNames returns handle names in declaration order. Handles inserted
// directly into Fields (for example by decoding) follow in sorted order.
func (n *Node) HandleNames() []string {
	names := make([]string, 0, len(n.Fields))
	seen := make(map[string]bool, len(n.Fields))
	for _, name := range n.order {
		if _, ok := n.Fields[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range n.Fields {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Value returns the current value of a handle, or nil if it does not exist.
func (n *Node) Value(name string) any {
	if h, ok := n.Fields[name]; ok {
		return h.Value
	}
	return nil
}

// String returns a handle value coerced to string ("" when unset).
func (n *Node) String(name string) string {
	return cast.ToString(n.Value(name))
}

// Strings returns a handle value coerced to a string slice.
func (n *Node) Strings(name string) []string {
	v := n.Value(name)
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	return cast.ToStringSlice(v)
}

// Documents returns a handle value as a document list.
func (n *Node) Documents(name string) []Document {
	switch v := n.Value(name).(type) {
	case []Document:
		return v
	case Document:
		return []Document{v}
	}
	return nil
}

// Set writes a handle value. Writes to undeclared handles are ignored.
func (n *Node) Set(name string, value any) {
	if h, ok := n.Fields[name]; ok {
		h.Value = value
	}
}

// Clear resets a handle value to nil.
func (n *Node) Clear(name string) {
	n.Set(name, nil)
}

// Param returns a raw parameter value.
func (n *Node) Param(key string) any {
	if n.Parameters == nil {
		return nil
	}
	return n.Parameters[key]
}

// StringParam returns a parameter coerced to string, or def when unset.
func (n *Node) StringParam(key, def string) string {
	v := n.Param(key)
	if v == nil {
		return def
	}
	s := cast.ToString(v)
	if s == "" {
		return def
	}
	return s
}

// FloatParam returns a parameter coerced to float64, or def when unset or
// not numeric.
func (n *Node) FloatParam(key string, def float64) float64 {
	v := n.Param(key)
	if v == nil {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// IntParam returns a parameter coerced to int, or def when unset or not numeric.
func (n *Node) IntParam(key string, def int) int {
	v := n.Param(key)
	if v == nil {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// SetParam sets a parameter value.
func (n *Node) SetParam(key string, value any) {
	if n.Parameters == nil {
		n.Parameters = make(map[string]any)
	}
	n.Parameters[key] = value
}

// resetRunValues clears run-scoped values: every output and every
// non-persistent input.
func (n *Node) resetRunValues() {
	for _, h := range n.Fields {
		if h.Direction == Output || !h.Persistent {
			h.Value = nil
		}
	}
}

// outputs snapshots the node's output values.
func (n *Node) outputs() map[string]any {
	out := make(map[string]any)
	for name, h := range n.Fields {
		if h.Direction == Output {
			out[name] = h.Value
		}
	}
	return out
}

// snapshot returns a copy of n whose handles and parameter map are private
// to the copy. Handle values are shared by reference.
func (n *Node) snapshot() *Node {
	c := &Node{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Parameters:    make(map[string]any, len(n.Parameters)),
		Fields:        make(map[string]*Handle, len(n.Fields)),
		Conditionable: n.Conditionable,
		order:         append([]string(nil), n.order...),
		sealed:        n.sealed,
	}
	for k, v := range n.Parameters {
		c.Parameters[k] = v
	}
	for name, h := range n.Fields {
		hc := *h
		c.Fields[name] = &hc
	}
	return c
}

// adoptOutputs copies the output values of a snapshot back onto n.
func (n *Node) adoptOutputs(c *Node) {
	for name, h := range n.Fields {
		if h.Direction != Output {
			continue
		}
		if ch, ok := c.Fields[name]; ok {
			h.Value = ch.Value
		}
	}
}
