// Package graph provides the dataflow execution engine for agent workflows.
package graph

// HandleType is the semantic type tag carried by a Handle.
//
// The set is closed. TypeUnknown acts as a wildcard when connecting edges, and
// TypeExecute marks control-only handles whose value is never read.
type HandleType string

// Handle type tags.
const (
	TypeString     HandleType = "string"
	TypeNumber     HandleType = "number"
	TypeBoolean    HandleType = "boolean"
	TypeStringList HandleType = "string[]"
	TypeDoc        HandleType = "doc"
	TypeReferences HandleType = "references"
	TypeUnknown    HandleType = "unknown"
	TypeExecute    HandleType = "execute"
)

// Valid reports whether t is one of the known handle types.
func (t HandleType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeStringList,
		TypeDoc, TypeReferences, TypeUnknown, TypeExecute:
		return true
	}
	return false
}

// CompatibleWith reports whether a value of type t may flow into a handle of
// type other. TypeUnknown matches anything on either end.
func (t HandleType) CompatibleWith(other HandleType) bool {
	if t == TypeUnknown || other == TypeUnknown {
		return true
	}
	return t == other
}

// Direction says whether a handle receives or produces values.
type Direction string

// Handle directions.
const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Handle is a named, typed slot on a node (a port).
//
// Value is run-scoped unless Persistent is set, in which case it survives
// across runs (for example a prompt template authored in the editor).
// A Condition handle gates execution of its node: the node only runs when
// the value delivered by the wired upstream edge is truthy.
type Handle struct {
	Name      string     `json:"name" yaml:"name"`
	Direction Direction  `json:"direction" yaml:"direction"`
	Type      HandleType `json:"type" yaml:"type"`
	Value     any        `json:"value,omitempty" yaml:"value,omitempty"`

	Persistent bool `json:"persistent,omitempty" yaml:"persistent,omitempty"`
	Condition  bool `json:"condition,omitempty" yaml:"condition,omitempty"`
	Optional   bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// Prompt describes the handle in natural language. Schema extraction
	// uses it as the field description.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// In declares an input handle.
func In(name string, t HandleType) Handle {
	return Handle{Name: name, Direction: Input, Type: t}
}

// Out declares an output handle.
func Out(name string, t HandleType) Handle {
	return Handle{Name: name, Direction: Output, Type: t}
}

// AsPersistent returns a copy of h marked persistent with an initial value.
func (h Handle) AsPersistent(value any) Handle {
	h.Persistent = true
	h.Value = value
	return h
}

// AsOptional returns a copy of h marked optional.
func (h Handle) AsOptional() Handle {
	h.Optional = true
	return h
}

// AsCondition returns a copy of h marked as a gating condition.
func (h Handle) AsCondition() Handle {
	h.Condition = true
	h.Optional = true
	return h
}

// Document is a unit of retrieved knowledge produced by search nodes and
// consumed by ai nodes as grounding context.
type Document struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Ref    string `json:"ref,omitempty"`
	Source string `json:"source,omitempty"`
	Domain string `json:"domain,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// Reference is a citation derived from a Document.
type Reference struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}
