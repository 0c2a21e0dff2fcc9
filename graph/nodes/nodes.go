// Package nodes is the built-in catalog of workflow node types.
//
// NewRegistry returns a graph.Registry holding every type, with behaviors
// bound to the external services in Services:
//
//	request   trigger input of the run
//	response  terminal node; its input is the run output
//	text      static text
//	display   passthrough for inspecting values
//	ai        language-model call
//	search    knowledge base or web search
//	combine   merge two values
//	schema    structured extraction with a JSON schema
//	api       outbound HTTP call through the relay
//	message   outbound chat message through the relay
package nodes

import (
	"context"
	"log/slog"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/knowledge"
	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/dshills/agentgraph-go/graph/model/providers"
	"github.com/dshills/agentgraph-go/graph/relay"
	"github.com/dshills/agentgraph-go/graph/search"
	"github.com/spf13/cast"
)

// Node type tags.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeText     = "text"
	TypeDisplay  = "display"
	TypeAI       = "ai"
	TypeSearch   = "search"
	TypeCombine  = "combine"
	TypeSchema   = "schema"
	TypeAPI      = "api"
	TypeMessage  = "message"
)

// Categories used by the catalog.
const (
	CategoryIO    = "io"
	CategoryAI    = "ai"
	CategoryData  = "data"
	CategoryTools = "tools"
)

// ModelFactory builds a chat model for a selector and credential.
type ModelFactory func(sel model.Selector, apiKey string) (model.ChatModel, error)

// EmbedderFactory builds an embedder for a provider and credential.
type EmbedderFactory func(provider, apiKey string) (model.Embedder, error)

// SearchFactory builds a web search engine for an engine name and credential.
type SearchFactory func(name, apiKey string) (search.Engine, error)

// Services are the external dependencies node behaviors call.
type Services struct {
	Models    ModelFactory
	Embedders EmbedderFactory
	Search    SearchFactory

	// Knowledge backs the "local" search engine. Nil disables it.
	Knowledge knowledge.Store

	// EmbeddingProvider names the credential and provider used for query
	// embeddings. Defaults to "openai".
	EmbeddingProvider string

	Relay relay.Relay
}

// DefaultServices wires the real providers, search engines and an in-process
// relay. Knowledge is left nil.
func DefaultServices() Services {
	return Services{
		Models: providers.NewChatModel,
		Embedders: func(provider, apiKey string) (model.Embedder, error) {
			return providers.NewEmbedder(provider, apiKey, "")
		},
		Search: func(name, apiKey string) (search.Engine, error) {
			return search.New(name, apiKey)
		},
		EmbeddingProvider: model.ProviderOpenAI,
		Relay:             relay.NewDirect(),
	}
}

func (s Services) withDefaults() Services {
	d := DefaultServices()
	if s.Models == nil {
		s.Models = d.Models
	}
	if s.Embedders == nil {
		s.Embedders = d.Embedders
	}
	if s.Search == nil {
		s.Search = d.Search
	}
	if s.EmbeddingProvider == "" {
		s.EmbeddingProvider = d.EmbeddingProvider
	}
	if s.Relay == nil {
		s.Relay = d.Relay
	}
	return s
}

// NewRegistry returns a registry with every built-in node type. Unset
// services fall back to DefaultServices.
func NewRegistry(s Services) *graph.Registry {
	s = s.withDefaults()
	r := graph.NewRegistry()
	for _, d := range []graph.Descriptor{
		requestDescriptor(),
		responseDescriptor(),
		textDescriptor(),
		displayDescriptor(),
		aiDescriptor(s),
		searchDescriptor(s),
		combineDescriptor(),
		schemaDescriptor(s),
		apiDescriptor(s),
		messageDescriptor(s),
	} {
		r.MustRegister(d)
	}
	return r
}

func runLogger(ctx context.Context, n *graph.Node) *slog.Logger {
	return graph.RunFromContext(ctx).Logger.With("node_id", n.ID, "node_type", n.Type)
}

// intValue coerces a handle value, falling back to def when unset or invalid.
func intValue(n *graph.Node, name string, def int) int {
	v := n.Value(name)
	if v == nil || v == "" {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// floatValue coerces a handle value, falling back to def when unset or invalid.
func floatValue(n *graph.Node, name string, def float64) float64 {
	v := n.Value(name)
	if v == nil || v == "" {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// firstString returns the first non-empty string.
func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
