// Package google provides ChatModel and Embedder adapters for the Google
// Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ChatModel implements model.ChatModel for Google's Gemini API.
//
// Provides access to Gemini models with:
//   - Safety filter handling
//   - System instructions
//   - JSON mode through the response MIME type
//   - Context cancellation
//
// Example usage:
//
//	m := google.NewChatModel(os.Getenv("GOOGLE_API_KEY"), "gemini-2.0-flash")
//	out, err := m.Chat(ctx, messages, model.CallOptions{})
//	if err != nil {
//	    var safetyErr *google.SafetyFilterError
//	    if errors.As(err, &safetyErr) {
//	        log.Printf("Content blocked: %s", safetyErr.Category())
//	    }
//	}
type ChatModel struct {
	modelName string
	client    googleClient
}

// googleClient defines the API operations the adapter needs, so tests can
// replace the SDK.
type googleClient interface {
	generateContent(ctx context.Context, modelName string, messages []model.Message, opts model.CallOptions) (model.ChatOut, error)
}

// NewChatModel creates a new Google ChatModel. Empty modelName uses
// "gemini-2.0-flash".
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &ChatModel{
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey},
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
	return m.client.generateContent(ctx, m.modelName, messages, opts)
}

// defaultClient wraps the official Google Gemini SDK client.
type defaultClient struct {
	apiKey string
}

func (c *defaultClient) generateContent(ctx context.Context, modelName string, messages []model.Message, opts model.CallOptions) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(modelName)
	systemPrompt, parts := convertMessages(messages)
	if systemPrompt != "" {
		genModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	configure(genModel, opts)

	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return model.ChatOut{}, safetyError(blocked)
		}
		return model.ChatOut{}, fmt.Errorf("google API error: %w", err)
	}
	return convertResponse(resp), nil
}

func configure(genModel *genai.GenerativeModel, opts model.CallOptions) {
	genModel.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		genModel.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.JSONMode {
		genModel.ResponseMIMEType = "application/json"
	}
}

// convertMessages splits system messages into one system instruction and
// turns the rest of the conversation into text parts.
func convertMessages(messages []model.Message) (string, []genai.Part) {
	var system []string
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		if msg.Role == model.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	return strings.Join(system, "\n\n"), parts
}

// convertResponse converts Google's response to our ChatOut format.
func convertResponse(resp *genai.GenerateContentResponse) model.ChatOut {
	out := model.ChatOut{}
	if resp == nil {
		return out
	}
	if resp.UsageMetadata != nil {
		out.Usage = model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if p, ok := part.(genai.Text); ok {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		}
	}
	return out
}

// safetyError converts a blocked response into a SafetyFilterError naming the
// first blocking category.
func safetyError(blocked *genai.BlockedError) *SafetyFilterError {
	e := &SafetyFilterError{reason: "SAFETY", category: "unknown"}
	var ratings []*genai.SafetyRating
	if blocked.PromptFeedback != nil {
		e.reason = blocked.PromptFeedback.BlockReason.String()
		ratings = blocked.PromptFeedback.SafetyRatings
	}
	if blocked.Candidate != nil {
		e.reason = blocked.Candidate.FinishReason.String()
		ratings = append(ratings, blocked.Candidate.SafetyRatings...)
	}
	for _, r := range ratings {
		if r != nil && r.Blocked {
			e.category = r.Category.String()
			break
		}
	}
	return e
}

// SafetyFilterError represents a Google safety filter block.
//
// Use errors.As to check for this error type:
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("Content blocked: %s", safetyErr.Category())
//	}
type SafetyFilterError struct {
	reason   string
	category string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the safety category that triggered the block.
func (e *SafetyFilterError) Category() string {
	return e.category
}

// Reason returns why the content was blocked.
func (e *SafetyFilterError) Reason() string {
	return e.reason
}
