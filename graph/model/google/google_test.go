package google

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGoogleClient struct {
	out   model.ChatOut
	err   error
	calls int
	model string
}

func (m *mockGoogleClient) generateContent(_ context.Context, modelName string, _ []model.Message, _ model.CallOptions) (model.ChatOut, error) {
	m.calls++
	m.model = modelName
	return m.out, m.err
}

func TestChatModel_Defaults(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", NewChatModel("k", "").ModelName())
	assert.Equal(t, "gemini-1.5-pro", NewChatModel("k", "gemini-1.5-pro").ModelName())
}

func TestChatModel_DelegatesToClient(t *testing.T) {
	client := &mockGoogleClient{out: model.ChatOut{Text: "hi"}}
	m := &ChatModel{modelName: "gemini-2.0-flash", client: client}

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hello"}}, model.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Text)
	assert.Equal(t, "gemini-2.0-flash", client.model)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Chat(ctx, nil, model.CallOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, client.calls)
}

func TestChatModel_MissingKey(t *testing.T) {
	_, err := NewChatModel("", "").Chat(context.Background(), nil, model.CallOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestConvertMessages(t *testing.T) {
	system, parts := convertMessages([]model.Message{
		{Role: model.RoleSystem, Content: "a"},
		{Role: model.RoleUser, Content: "question"},
		{Role: model.RoleSystem, Content: "b"},
		{Role: model.RoleUser, Content: ""},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []genai.Part{genai.Text("question")}, parts)
}

func TestConfigure(t *testing.T) {
	gm := &genai.GenerativeModel{}
	configure(gm, model.CallOptions{Temperature: 0.3, MaxTokens: 50, JSONMode: true})
	require.NotNil(t, gm.Temperature)
	assert.InDelta(t, 0.3, *gm.Temperature, 1e-6)
	require.NotNil(t, gm.MaxOutputTokens)
	assert.Equal(t, int32(50), *gm.MaxOutputTokens)
	assert.Equal(t, "application/json", gm.ResponseMIMEType)
}

func TestConvertResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("line one"), genai.Text("line two")}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 11, CandidatesTokenCount: 4},
	}
	out := convertResponse(resp)
	assert.Equal(t, "line one\nline two", out.Text)
	assert.Equal(t, model.Usage{InputTokens: 11, OutputTokens: 4}, out.Usage)

	assert.Equal(t, model.ChatOut{}, convertResponse(&genai.GenerateContentResponse{}))
	assert.Equal(t, model.ChatOut{}, convertResponse(nil))
}

func TestSafetyError(t *testing.T) {
	blocked := &genai.BlockedError{
		Candidate: &genai.Candidate{
			FinishReason: genai.FinishReasonSafety,
			SafetyRatings: []*genai.SafetyRating{
				{Category: genai.HarmCategoryHarassment},
				{Category: genai.HarmCategoryDangerousContent, Blocked: true},
			},
		},
	}
	err := safetyError(blocked)
	assert.Equal(t, genai.HarmCategoryDangerousContent.String(), err.Category())
	assert.Equal(t, genai.FinishReasonSafety.String(), err.Reason())

	var target *SafetyFilterError
	require.True(t, errors.As(error(err), &target))
	assert.Contains(t, err.Error(), "content blocked by safety filter")
}
