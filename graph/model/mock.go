package model

import (
	"context"
	"sync"
)

// MockChatModel is a test implementation of ChatModel.
//
// Use MockChatModel in tests to verify node behavior without making actual
// LLM API calls. Each call returns the next entry of Responses; once they are
// consumed the last response repeats. Err, when set, is returned instead.
//
// Example usage:
//
//	mock := &MockChatModel{
//	    Responses: []ChatOut{{Text: "First"}, {Text: "Second"}},
//	}
type MockChatModel struct {
	Responses []ChatOut
	Err       error

	// Calls tracks the history of all Chat invocations.
	Calls []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records a single invocation of Chat.
type MockChatCall struct {
	Messages []Message
	Options  CallOptions
}

// Chat implements the ChatModel interface. The call is recorded even when an
// error is returned.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, opts CallOptions) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{Messages: messages, Options: opts})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears the call history and resets the response index.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of times Chat has been called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}

// MockEmbedder is a test implementation of Embedder.
//
// Vectors maps exact input text to a vector; other inputs get Vector.
type MockEmbedder struct {
	Vector  []float32
	Vectors map[string][]float32
	Err     error

	mu    sync.Mutex
	calls []string
}

// Embed implements Embedder.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, text)
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	return m.Vector, nil
}

// Calls returns the texts Embed was called with.
func (m *MockEmbedder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.calls...)
}
