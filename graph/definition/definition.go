// Package definition loads agent graphs from YAML or JSON documents and
// writes them back.
//
// A definition lists nodes and edges:
//
//	name: capital-bot
//	nodes:
//	  - id: req
//	    type: request
//	  - id: ai
//	    type: ai
//	    parameters:
//	      model: anthropic/claude-3-5-haiku-latest
//	    values:
//	      prompt: Answer in one word.
//	  - id: res
//	    type: response
//	edges:
//	  - {source: req, sourceHandle: input, target: ai, targetHandle: input}
//	  - {source: ai, sourceHandle: answer, target: res, targetHandle: input}
//
// Nodes are created through a graph.Registry so every type gets its default
// handles and parameters; the document only carries overrides. values may
// only target persistent handles.
package definition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/agentgraph-go/graph"
	yaml "go.yaml.in/yaml/v2"
)

// Definition is the serialized form of an agent graph.
type Definition struct {
	Name        string     `json:"name,omitempty" yaml:"name,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []NodeSpec `json:"nodes" yaml:"nodes"`
	Edges       []EdgeSpec `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// NodeSpec describes one node.
type NodeSpec struct {
	ID    string `json:"id" yaml:"id"`
	Type  string `json:"type" yaml:"type"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Parameters override the type's default parameters.
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Values set persistent handle values such as prompts. Other handles are
	// cleared at the start of every run and cannot take authored values.
	Values map[string]any `json:"values,omitempty" yaml:"values,omitempty"`

	// Handles are declared in addition to the type's own, for example the
	// output fields of a schema node.
	Handles []graph.Handle `json:"handles,omitempty" yaml:"handles,omitempty"`
}

// EdgeSpec connects an output handle to an input handle.
type EdgeSpec struct {
	Source       string `json:"source" yaml:"source"`
	SourceHandle string `json:"sourceHandle" yaml:"sourceHandle"`
	Target       string `json:"target" yaml:"target"`
	TargetHandle string `json:"targetHandle" yaml:"targetHandle"`
}

// ErrEmpty is returned for a definition without nodes.
var ErrEmpty = errors.New("definition has no nodes")

// Load reads a definition file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return Parse(data)
}

// Parse decodes a YAML definition. JSON documents are accepted too.
func Parse(data []byte) (*Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(data)
	}

	var d Definition
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	for i := range d.Nodes {
		n := &d.Nodes[i]
		n.Parameters = normalizeMap(n.Parameters)
		n.Values = normalizeMap(n.Values)
		for j := range n.Handles {
			n.Handles[j].Value = normalize(n.Handles[j].Value)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseJSON decodes a JSON definition.
func ParseJSON(data []byte) (*Definition, error) {
	var d Definition
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the document shape. Type names and handle wiring are
// checked by Build against a registry.
func (d *Definition) Validate() error {
	if len(d.Nodes) == 0 {
		return ErrEmpty
	}
	seen := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: id is required", i)
		}
		if n.Type == "" {
			return fmt.Errorf("node %s: type is required", n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id %s", n.ID)
		}
		seen[n.ID] = true
	}
	for i, e := range d.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("edge %d: unknown source node %q", i, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("edge %d: unknown target node %q", i, e.Target)
		}
	}
	return nil
}

// Build creates the graph described by d with nodes from reg.
func (d *Definition) Build(reg *graph.Registry) (*graph.Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	g := graph.New()
	for _, spec := range d.Nodes {
		n, err := reg.Create(g, spec.Type)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", spec.ID, err)
		}
		n.ID = spec.ID
		if spec.Title != "" {
			n.Title = spec.Title
		}
		for k, v := range spec.Parameters {
			n.SetParam(k, v)
		}
		for _, h := range spec.Handles {
			if err := n.DeclareHandle(h); err != nil {
				return nil, fmt.Errorf("node %s: %w", spec.ID, err)
			}
		}
		for name, v := range spec.Values {
			h, ok := n.Handle(name)
			if !ok {
				return nil, &graph.EngineError{
					Message: "node " + spec.ID + " has no handle " + name,
					Code:    "HANDLE_NOT_FOUND",
				}
			}
			if !h.Persistent {
				return nil, &graph.EngineError{
					Message: "node " + spec.ID + " handle " + name + " is not persistent and cannot take a value",
					Code:    "HANDLE_NOT_PERSISTENT",
				}
			}
			n.Set(name, v)
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, e := range d.Edges {
		if _, err := g.Connect(e.Source, e.SourceHandle, e.Target, e.TargetHandle); err != nil {
			return nil, fmt.Errorf("edge %s.%s -> %s.%s: %w", e.Source, e.SourceHandle, e.Target, e.TargetHandle, err)
		}
	}
	return g, nil
}

// FromGraph captures g as a definition. Handles a registry would create are
// not repeated unless reg is nil; persistent values are kept.
func FromGraph(g *graph.Graph, reg *graph.Registry) *Definition {
	d := &Definition{}
	for _, n := range g.Nodes() {
		spec := NodeSpec{ID: n.ID, Type: n.Type, Title: n.Title}
		if len(n.Parameters) > 0 {
			spec.Parameters = make(map[string]any, len(n.Parameters))
			for k, v := range n.Parameters {
				spec.Parameters[k] = v
			}
		}

		var builtin *graph.Node
		if reg != nil {
			builtin, _ = reg.Create(graph.New(), n.Type)
		}
		for _, name := range n.HandleNames() {
			h, _ := n.Handle(name)
			if builtin == nil || !hasHandle(builtin, name) {
				extra := *h
				if !extra.Persistent {
					extra.Value = nil
				}
				spec.Handles = append(spec.Handles, extra)
				continue
			}
			if h.Persistent && h.Value != nil {
				if spec.Values == nil {
					spec.Values = make(map[string]any)
				}
				spec.Values[name] = h.Value
			}
		}
		d.Nodes = append(d.Nodes, spec)
	}
	for _, e := range g.Edges() {
		d.Edges = append(d.Edges, EdgeSpec{
			Source: e.Source, SourceHandle: e.SourceHandle,
			Target: e.Target, TargetHandle: e.TargetHandle,
		})
	}
	return d
}

func hasHandle(n *graph.Node, name string) bool {
	_, ok := n.Handle(name)
	return ok
}

// YAML renders d as a YAML document.
func (d *Definition) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// JSON renders d as indented JSON.
func (d *Definition) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// normalize converts the map[interface{}]interface{} values produced by the
// YAML decoder into map[string]any, recursively.
func normalize(v any) any {
	switch x := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case map[string]any:
		return normalizeMap(x)
	case []interface{}:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m
}
