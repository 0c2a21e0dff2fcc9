// Package providers maps model selectors to concrete ChatModel and Embedder
// adapters.
package providers

import (
	"fmt"

	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/dshills/agentgraph-go/graph/model/anthropic"
	"github.com/dshills/agentgraph-go/graph/model/google"
	"github.com/dshills/agentgraph-go/graph/model/openai"
)

// Base URLs of the OpenAI-compatible providers.
const (
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	GroqBaseURL     = "https://api.groq.com/openai/v1"
	XAIBaseURL      = "https://api.x.ai/v1"
)

// Resolver builds models for selectors. The zero value talks to the public
// endpoints; BaseURLs overrides the endpoint of OpenAI-compatible providers
// (including openai itself).
type Resolver struct {
	BaseURLs map[string]string
}

// NewChatModel builds a ChatModel with the default Resolver.
func NewChatModel(sel model.Selector, apiKey string) (model.ChatModel, error) {
	return Resolver{}.ChatModel(sel, apiKey)
}

// ChatModel returns the adapter for sel authenticated with apiKey.
func (r Resolver) ChatModel(sel model.Selector, apiKey string) (model.ChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for provider %s", sel.Provider)
	}

	switch sel.Provider {
	case model.ProviderOpenAI:
		if base := r.BaseURLs[model.ProviderOpenAI]; base != "" {
			return openai.NewCompatibleChatModel(apiKey, base, sel.Model), nil
		}
		return openai.NewChatModel(apiKey, sel.Model), nil
	case model.ProviderAnthropic:
		return anthropic.NewChatModel(apiKey, sel.Model), nil
	case model.ProviderGoogle:
		return google.NewChatModel(apiKey, sel.Model), nil
	case model.ProviderDeepSeek:
		return openai.NewCompatibleChatModel(apiKey, r.baseURL(sel.Provider, DeepSeekBaseURL), sel.Model), nil
	case model.ProviderGroq:
		return openai.NewCompatibleChatModel(apiKey, r.baseURL(sel.Provider, GroqBaseURL), sel.Model), nil
	case model.ProviderXAI:
		return openai.NewCompatibleChatModel(apiKey, r.baseURL(sel.Provider, XAIBaseURL), sel.Model), nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, sel.Provider)
}

func (r Resolver) baseURL(provider, def string) string {
	if base := r.BaseURLs[provider]; base != "" {
		return base
	}
	return def
}

// NewEmbedder returns the embedding adapter for provider. Only openai and
// google offer embeddings; an empty modelName picks the provider default.
func NewEmbedder(provider, apiKey, modelName string) (model.Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for provider %s", provider)
	}
	switch provider {
	case model.ProviderOpenAI:
		return openai.NewEmbedder(apiKey, modelName), nil
	case model.ProviderGoogle:
		return google.NewEmbedder(apiKey, modelName), nil
	}
	return nil, fmt.Errorf("provider %s does not support embeddings", provider)
}
