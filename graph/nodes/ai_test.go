package nodes

import (
	"errors"
	"testing"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAI_UnparsableModelFailsRun(t *testing.T) {
	f := newFixture(t)
	n := f.node(TypeAI, map[string]any{"model": "gpt-4o"})
	n.Set("input", "hello")

	params := keys("openai", "sk")
	_, err := f.exec(n, params)
	require.NoError(t, err)

	assert.True(t, params.Failed())
	assert.Contains(t, params.Err(), "invalid model selector")
	assert.Zero(t, f.chat.CallCount())
	assert.Empty(t, f.modelCalls)
	assert.Nil(t, n.Value("answer"))
}

func TestAI_MissingCredentialFailsRun(t *testing.T) {
	f := newFixture(t)
	n := f.node(TypeAI, map[string]any{"model": "anthropic/claude-3-5-haiku-latest"})

	params := keys("openai", "sk")
	_, err := f.exec(n, params)
	require.NoError(t, err)

	assert.Contains(t, params.Err(), "no API key configured for provider anthropic")
	assert.Zero(t, f.chat.CallCount())
}

func TestAI_Answer(t *testing.T) {
	f := newFixture(t)
	f.chat.Responses = []model.ChatOut{{Text: "Paris", Usage: model.Usage{InputTokens: 1000, OutputTokens: 100}}}
	n := f.node(TypeAI, map[string]any{"model": "openai/gpt-4o", "temperature": 0.7, "maxTokens": 256})
	n.Set("prompt", "You are a geography tutor.")
	n.Set("input", "Capital of France?")

	params := keys("openai", "sk")
	run, err := f.exec(n, params)
	require.NoError(t, err)
	require.False(t, params.Failed())

	assert.Equal(t, "Paris", n.Value("answer"))
	assert.Equal(t, []model.Selector{{Provider: "openai", Model: "gpt-4o"}}, f.modelCalls)

	require.Equal(t, 1, f.chat.CallCount())
	call := f.chat.Calls[0]
	assert.Equal(t, []model.Message{
		{Role: model.RoleSystem, Content: "You are a geography tutor."},
		{Role: model.RoleUser, Content: "Capital of France?"},
	}, call.Messages)
	assert.InDelta(t, 0.7, call.Options.Temperature, 1e-9)
	assert.Equal(t, 256, call.Options.MaxTokens)
	assert.False(t, call.Options.JSONMode)

	in, out := run.Costs.GetTokenUsage()
	assert.Equal(t, int64(1000), in)
	assert.Equal(t, int64(100), out)
	assert.InDelta(t, 0.0035, run.Costs.GetTotalCost(), 1e-9)
}

func TestAI_DocumentsBecomeContext(t *testing.T) {
	f := newFixture(t)
	f.chat.Responses = []model.ChatOut{{Text: "42"}}
	n := f.node(TypeAI, nil)
	n.Set("prompt", "Be precise.")
	n.Set("input", "What is the answer?")
	n.Set("documents", []graph.Document{
		{Title: "Guide", Body: "The answer is 42.", Source: "hitchhiker"},
		{Body: "Untitled body", Ref: "https://example.com"},
	})

	_, err := f.exec(n, keys("openai", "sk"))
	require.NoError(t, err)

	msgs := f.chat.Calls[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleSystem, msgs[1].Role)
	ctx := msgs[1].Content
	assert.Contains(t, ctx, contextInstruction)
	assert.Contains(t, ctx, "[1] Guide\nThe answer is 42.\nSource: hitchhiker")
	assert.Contains(t, ctx, "[2] Untitled\nUntitled body\nSource: https://example.com")
	assert.Equal(t, model.RoleUser, msgs[2].Role)
}

func TestAI_ModelErrorFailsRun(t *testing.T) {
	f := newFixture(t)
	f.chat.Err = errors.New("overloaded")
	n := f.node(TypeAI, nil)
	n.Set("input", "hi")

	params := keys("openai", "sk")
	_, err := f.exec(n, params)
	require.NoError(t, err)
	assert.Contains(t, params.Err(), "overloaded")
	assert.Nil(t, n.Value("answer"))
}
