package graph

// Edge connects an output handle of one node to an input (or condition)
// handle of another.
//
// Edges are stored as id pairs in the graph arena rather than as pointers,
// so removing a node only needs to drop the edges that mention its id.
type Edge struct {
	ID string `json:"id" yaml:"id"`

	// Source is the producing node ID and SourceHandle its output handle.
	Source       string `json:"source" yaml:"source"`
	SourceHandle string `json:"sourceHandle" yaml:"sourceHandle"`

	// Target is the consuming node ID and TargetHandle its input handle.
	Target       string `json:"target" yaml:"target"`
	TargetHandle string `json:"targetHandle" yaml:"targetHandle"`
}
