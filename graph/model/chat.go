// Package model provides the language-model contracts used by node behaviors
// and the selector syntax that picks a provider.
package model

import "context"

// ChatModel defines the interface for LLM chat providers.
//
// Implementations should:
//   - Convert the standard Message format to the provider's format.
//   - Report token usage so callers can track cost.
//   - Respect context cancellation and timeouts.
//
// Example usage:
//
//	m := openai.NewChatModel(apiKey, "gpt-4o-mini")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleSystem, Content: "Answer briefly."},
//	    {Role: model.RoleUser, Content: "What is the capital of France?"},
//	}, model.CallOptions{Temperature: 0})
type ChatModel interface {
	// Chat sends messages to the LLM and returns the response.
	Chat(ctx context.Context, messages []Message, opts CallOptions) (ChatOut, error)
}

// Embedder turns text into a vector for similarity lookups.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string

	// Content contains the message text.
	Content string
}

// Standard role constants for LLM conversations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CallOptions tunes a single chat call.
type CallOptions struct {
	// Temperature controls sampling randomness. Zero is deterministic-leaning.
	Temperature float64

	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int

	// JSONMode asks the provider to answer with a single JSON object.
	JSONMode bool
}

// Usage reports the tokens consumed by a call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ChatOut represents the output from an LLM chat completion.
type ChatOut struct {
	// Text contains the LLM's generated response.
	Text string

	// Usage is zero when the provider does not report it.
	Usage Usage
}
