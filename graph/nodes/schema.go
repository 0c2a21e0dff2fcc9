package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const extractionInstruction = "Extract the requested fields from the user's text. " +
	"Answer with one JSON object that conforms to this JSON schema:\n"

func schemaDescriptor(s Services) graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeSchema,
		Title:       "Schema",
		Category:    CategoryAI,
		Description: "Extracts structured fields from text; every output handle is a field.",
		Create: func(*graph.Graph) *graph.Node {
			n := graph.NewNode(graph.NewNodeID(), TypeSchema, graph.In("input", graph.TypeString))
			n.SetParam("model", "openai/gpt-4o-mini")
			n.SetParam("temperature", 0.0)
			return n
		},
		Behavior: &schemaBehavior{models: s.Models},
	}
}

type schemaBehavior struct {
	models ModelFactory
}

// Execute implements graph.Behavior. A model answer that does not fit the
// schema leaves every field unset and the run continues.
func (b *schemaBehavior) Execute(ctx context.Context, n *graph.Node, params *graph.GlobalParameters) error {
	m, sel, ok := resolveModel(b.models, n, params)
	if !ok {
		return nil
	}

	fields := outputFields(n)
	if len(fields) == 0 {
		return nil
	}
	schema := fieldSchema(fields)
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	out, err := m.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: extractionInstruction + string(raw)},
		{Role: model.RoleUser, Content: n.String("input")},
	}, model.CallOptions{
		Temperature: n.FloatParam("temperature", 0),
		MaxTokens:   n.IntParam("maxTokens", 0),
		JSONMode:    true,
	})
	log := runLogger(ctx, n)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("schema extraction call failed", "model", sel.String(), "error", err)
		return nil
	}
	recordUsage(ctx, n, sel, out.Usage)

	var values map[string]any
	if err := jsonschema.VerifySchemaAndUnmarshal(schema, []byte(out.Text), &values); err != nil {
		log.Warn("schema extraction answer rejected", "model", sel.String(), "error", err)
		return nil
	}
	for _, h := range fields {
		n.Set(h.Name, values[h.Name])
	}
	return nil
}

// outputFields returns the node's output handles in declaration order.
func outputFields(n *graph.Node) []*graph.Handle {
	var fields []*graph.Handle
	for _, name := range n.HandleNames() {
		if h, _ := n.Handle(name); h.Direction == graph.Output {
			fields = append(fields, h)
		}
	}
	return fields
}

// fieldSchema builds an object schema with one required property per field.
// Types without a JSON counterpart are extracted as strings.
func fieldSchema(fields []*graph.Handle) jsonschema.Definition {
	def := jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: make(map[string]jsonschema.Definition, len(fields)),
	}
	for _, h := range fields {
		prop := jsonschema.Definition{Description: h.Prompt}
		switch h.Type {
		case graph.TypeBoolean:
			prop.Type = jsonschema.Boolean
		case graph.TypeNumber:
			prop.Type = jsonschema.Number
		case graph.TypeStringList:
			prop.Type = jsonschema.Array
			prop.Items = &jsonschema.Definition{Type: jsonschema.String}
		default:
			prop.Type = jsonschema.String
		}
		def.Properties[h.Name] = prop
		def.Required = append(def.Required, h.Name)
	}
	return def
}
