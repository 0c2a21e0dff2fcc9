// Package openai provides ChatModel and Embedder adapters for the OpenAI API
// and for OpenAI-compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/agentgraph-go/graph/model"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ChatModel implements model.ChatModel for OpenAI's API.
//
// Provides access to OpenAI models with:
//   - Automatic retry logic for transient errors
//   - Rate limit handling
//   - JSON mode
//   - Context cancellation
//
// Example usage:
//
//	m := openai.NewChatModel(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini")
//	out, err := m.Chat(ctx, messages, model.CallOptions{})
type ChatModel struct {
	modelName  string
	client     openaiClient
	maxRetries int
	retryDelay time.Duration
}

// openaiClient defines the API operations the adapter needs, so tests can
// replace the SDK.
type openaiClient interface {
	createChatCompletion(ctx context.Context, modelName string, messages []model.Message, opts model.CallOptions) (model.ChatOut, error)
}

// NewChatModel creates a ChatModel for api.openai.com.
//
// Empty modelName uses "gpt-4o-mini". The model retries transient errors
// 3 times with a 1 second base delay.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return newChatModel(modelName, newSDKClient(apiKey))
}

// NewCompatibleChatModel creates a ChatModel for an OpenAI-compatible
// endpoint (DeepSeek, Groq, xAI...) rooted at baseURL.
func NewCompatibleChatModel(apiKey, baseURL, modelName string) *ChatModel {
	return newChatModel(modelName, newSDKClient(apiKey, option.WithBaseURL(baseURL)))
}

func newChatModel(modelName string, client openaiClient) *ChatModel {
	return &ChatModel{
		modelName:  modelName,
		client:     client,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// ModelName returns the configured model ID.
func (m *ChatModel) ModelName() string {
	return m.modelName
}

// Chat implements the model.ChatModel interface.
//
// Automatically retries on transient errors (network issues, rate limits,
// server errors). Authentication and request errors are returned at once.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, opts model.CallOptions) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.createChatCompletion(ctx, m.modelName, messages, opts)
		if err == nil {
			return out, nil
		}

		lastErr = err

		if !isTransientError(err) {
			return model.ChatOut{}, err
		}
		if attempt >= m.maxRetries {
			break
		}

		// Linear backoff for rate limits
		delay := m.retryDelay
		if isRateLimitError(err) {
			delay = m.retryDelay * time.Duration(attempt+1)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}

	return model.ChatOut{}, fmt.Errorf("OpenAI API failed after %d retries: %w", m.maxRetries, lastErr)
}

// isTransientError determines if an error should trigger a retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if isRateLimitError(err) {
		return true
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}

	msgLower := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"network",
		"connection",
		"temporary",
		"503",
		"502",
		"500",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(msgLower, pattern) {
			return true
		}
	}
	return false
}

// isRateLimitError checks if error is a rate limit error.
func isRateLimitError(err error) bool {
	var rateLimitErr *rateLimitError
	return errors.As(err, &rateLimitErr)
}

// rateLimitError marks HTTP 429 responses.
type rateLimitError struct {
	message string
	cause   error
}

func (e *rateLimitError) Error() string {
	return "rate limited: " + e.message
}

func (e *rateLimitError) Unwrap() error {
	return e.cause
}

// sdkClient wraps the official openai-go client.
type sdkClient struct {
	client sdk.Client
	hasKey bool
}

func newSDKClient(apiKey string, opts ...option.RequestOption) *sdkClient {
	// Retries are handled by ChatModel.
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &sdkClient{client: sdk.NewClient(opts...), hasKey: apiKey != ""}
}

func (c *sdkClient) createChatCompletion(ctx context.Context, modelName string, messages []model.Message, opts model.CallOptions) (model.ChatOut, error) {
	if !c.hasKey {
		return model.ChatOut{}, errors.New("OpenAI API key is required")
	}

	params := sdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(modelName),
		Messages:    convertMessages(messages),
		Temperature: sdk.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(opts.MaxTokens))
	}
	if opts.JSONMode {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: sdk.Ptr(shared.NewResponseFormatJSONObjectParam()),
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, mapError(err)
	}
	if len(completion.Choices) == 0 {
		return model.ChatOut{}, errors.New("no response from OpenAI API")
	}

	return model.ChatOut{
		Text: completion.Choices[0].Message.Content,
		Usage: model.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

func convertMessages(messages []model.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, sdk.SystemMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, sdk.AssistantMessage(msg.Content))
		default:
			out = append(out, sdk.UserMessage(msg.Content))
		}
	}
	return out
}

func mapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{message: err.Error(), cause: err}
	}
	return err
}
