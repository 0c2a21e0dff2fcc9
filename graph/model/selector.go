package model

import (
	"errors"
	"fmt"
	"strings"
)

// Provider names accepted in model selectors.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderDeepSeek  = "deepseek"
	ProviderGroq      = "groq"
	ProviderXAI       = "xai"
)

// Providers lists every supported provider in a stable order.
var Providers = []string{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderDeepSeek,
	ProviderGroq,
	ProviderXAI,
}

var (
	// ErrInvalidSelector is returned for selectors that are not "<provider>/<modelId>".
	ErrInvalidSelector = errors.New("invalid model selector")

	// ErrUnknownProvider is returned when the provider part names no supported provider.
	ErrUnknownProvider = errors.New("unknown model provider")
)

// Selector identifies a model as provider plus provider-specific model ID.
type Selector struct {
	Provider string
	Model    string
}

// String renders the selector as "<provider>/<modelId>".
func (s Selector) String() string {
	return s.Provider + "/" + s.Model
}

// ParseSelector splits "<provider>/<modelId>" on the first slash. Model IDs
// may themselves contain slashes ("groq/meta-llama/llama-4-scout").
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	provider, id, ok := strings.Cut(s, "/")
	if !ok || provider == "" || id == "" {
		return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, s)
	}
	provider = strings.ToLower(provider)
	if !KnownProvider(provider) {
		return Selector{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return Selector{Provider: provider, Model: id}, nil
}

// KnownProvider reports whether name is a supported provider.
func KnownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}
