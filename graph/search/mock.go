package search

import (
	"context"
	"sync"
)

// MockEngine is a test implementation of Engine returning fixed results.
type MockEngine struct {
	Results []Result
	Err     error

	mu      sync.Mutex
	queries []Query
}

// Search implements Engine. The query is recorded even when an error is
// returned.
func (m *MockEngine) Search(ctx context.Context, q Query) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, q)
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]Result(nil), m.Results...), nil
}

// Queries returns the recorded queries.
func (m *MockEngine) Queries() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Query(nil), m.queries...)
}
