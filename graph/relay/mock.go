package relay

import (
	"context"
	"sync"
	"time"
)

// MockRelay is a test implementation of Relay.
//
// Responses are returned in order and the last one repeats; an empty list
// answers 200 with no data. Err, when set, is returned instead.
type MockRelay struct {
	Responses []Response
	Err       error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one relayed request.
type MockCall struct {
	Request Request
	At      time.Time
}

// Do implements Relay.
func (m *MockRelay) Do(ctx context.Context, r Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, MockCall{Request: r, At: time.Now()})
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &Response{Status: 200, StatusText: "OK"}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	resp := m.Responses[idx]
	return &resp, nil
}

// Calls returns the recorded requests.
func (m *MockRelay) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]MockCall(nil), m.calls...)
}

// CallCount returns the number of requests received.
func (m *MockRelay) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}
