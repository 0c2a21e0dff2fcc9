package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/agentgraph-go/graph"
)

// MemStore is an in-memory Store. Intended for tests and small, static
// knowledge bases loaded at startup.
//
// Thread-safe: all methods use mutex protection.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string][]entry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string][]entry)}
}

// Add implements Writer. The vector is copied.
func (m *MemStore) Add(ctx context.Context, collectionID string, doc graph.Document, embedding []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.collections[collectionID]
	if len(existing) > 0 && len(existing[0].vector) != len(embedding) {
		return fmt.Errorf("%w: collection %s has %d, got %d",
			ErrDimensionMismatch, collectionID, len(existing[0].vector), len(embedding))
	}
	vec := append([]float32(nil), embedding...)
	m.collections[collectionID] = append(existing, entry{doc: doc, vector: vec})
	return nil
}

// Match implements Store.
func (m *MemStore) Match(ctx context.Context, collectionID string, embedding []float32, threshold float64, limit int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entries, ok := m.collections[collectionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}
	return rank(entries, embedding, threshold, limit), nil
}

// Collections returns the number of documents per collection.
func (m *MemStore) Collections() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int, len(m.collections))
	for id, entries := range m.collections {
		out[id] = len(entries)
	}
	return out
}
