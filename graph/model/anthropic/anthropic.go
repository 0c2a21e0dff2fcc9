// Package anthropic provides a ChatModel adapter for Anthropic's Claude API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/dshills/agentgraph-go/graph/model"
)

// DefaultMaxTokens is sent when the caller sets no limit; the Messages API
// requires one.
const DefaultMaxTokens = 1024

const jsonInstruction = "Respond with a single JSON object and nothing else."

// ChatModel implements model.ChatModel for Anthropic's Claude API.
//
// System messages are lifted into the request's system parameter. Claude has
// no JSON response format, so JSON mode adds an instruction to the system
// prompt and strips Markdown fences from the answer.
//
// Example usage:
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "claude-3-5-haiku-latest")
//	out, err := m.Chat(ctx, messages, model.CallOptions{MaxTokens: 512})
type ChatModel struct {
	modelName string
	client    anthropicClient
}

// anthropicClient defines the API operations the adapter needs, so tests can
// replace the SDK.
type anthropicClient interface {
	createMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error)
}

// NewChatModel creates a new Anthropic ChatModel. Empty modelName uses
// "claude-3-5-haiku-latest". Extra request options are passed to the SDK.
func NewChatModel(apiKey, modelName string, opts ...option.RequestOption) *ChatModel {
	if modelName == "" {
		modelName = "claude-3-5-haiku-latest"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ChatModel{
		modelName: modelName,
		client:    &sdkClient{client: sdk.NewClient(opts...), hasKey: apiKey != ""},
	}
}

// ModelName returns the configured model ID.
func (m *ChatModel) ModelName() string {
	return m.modelName
}

// Chat implements the model.ChatModel interface.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, opts model.CallOptions) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	systemPrompt, conversation := extractSystemPrompt(messages)
	if opts.JSONMode {
		systemPrompt = joinPrompt(systemPrompt, jsonInstruction)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(m.modelName),
		MaxTokens:   int64(maxTokens),
		Messages:    convertMessages(conversation),
		Temperature: sdk.Float(opts.Temperature),
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := m.client.createMessage(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return model.ChatOut{}, translateAnthropicError(apiErr)
		}
		return model.ChatOut{}, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out := model.ChatOut{
		Text: text.String(),
		Usage: model.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	if opts.JSONMode {
		out.Text = stripFences(out.Text)
	}
	return out, nil
}

// extractSystemPrompt separates system messages from the conversation.
// Multiple system messages are joined with blank lines.
func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var conversation []model.Message

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			systemPrompt = joinPrompt(systemPrompt, msg.Content)
		} else {
			conversation = append(conversation, msg)
		}
	}
	return systemPrompt, conversation
}

func joinPrompt(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n\n" + b
}

func convertMessages(messages []model.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == model.RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
			continue
		}
		out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// translateAnthropicError maps an HTTP failure to Anthropic's error type
// names:
//   - authentication_error: Invalid API key
//   - permission_error: Insufficient permissions
//   - not_found_error: Unknown model or resource
//   - rate_limit_error: Rate limit exceeded
//   - overloaded_error: Service temporarily overloaded
//   - invalid_request_error: Invalid request parameters
func translateAnthropicError(err *sdk.Error) error {
	typ := "api_error"
	switch err.StatusCode {
	case http.StatusBadRequest:
		typ = "invalid_request_error"
	case http.StatusUnauthorized:
		typ = "authentication_error"
	case http.StatusForbidden:
		typ = "permission_error"
	case http.StatusNotFound:
		typ = "not_found_error"
	case http.StatusTooManyRequests:
		typ = "rate_limit_error"
	case 529:
		typ = "overloaded_error"
	}
	return &anthropicError{Type: typ, StatusCode: err.StatusCode, Message: err.Error(), cause: err}
}

// sdkClient wraps the official anthropic-sdk-go client.
type sdkClient struct {
	client sdk.Client
	hasKey bool
}

func (c *sdkClient) createMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	if !c.hasKey {
		return nil, errors.New("anthropic API key is required")
	}
	return c.client.Messages.New(ctx, params)
}

// anthropicError represents an Anthropic API error.
type anthropicError struct {
	Type       string
	StatusCode int
	Message    string
	cause      error
}

func (e *anthropicError) Error() string {
	return e.Type + ": " + e.Message
}

func (e *anthropicError) Unwrap() error {
	return e.cause
}
