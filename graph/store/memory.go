package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store.
//
// Designed for:
//   - Testing and development
//   - Short-lived processes that do not need durable history
//
// MemStore is thread-safe. Records are lost when the process exits.
type MemStore struct {
	mu sync.RWMutex

	// runs maps runID to its run record
	runs map[string]RunRecord

	// steps maps runID to its steps keyed by step number
	steps map[string]map[int]StepRecord
}

// NewMemStore creates a new in-memory store.
//
// Example:
//
//	st := store.NewMemStore()
//	engine, _ := graph.NewEngine(registry, graph.WithStore(st))
func NewMemStore() *MemStore {
	return &MemStore{
		runs:  make(map[string]RunRecord),
		steps: make(map[string]map[int]StepRecord),
	}
}

// SaveStep implements Store.
func (m *MemStore) SaveStep(_ context.Context, step StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bySeq, ok := m.steps[step.RunID]
	if !ok {
		bySeq = make(map[int]StepRecord)
		m.steps[step.RunID] = bySeq
	}
	step.Outputs = copyMap(step.Outputs)
	bySeq[step.Step] = step
	return nil
}

// SaveRun implements Store.
func (m *MemStore) SaveRun(_ context.Context, run RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[run.RunID] = run
	return nil
}

// LoadRun implements Store.
func (m *MemStore) LoadRun(_ context.Context, runID string) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return RunRecord{}, ErrNotFound
	}
	return run, nil
}

// LoadSteps implements Store.
func (m *MemStore) LoadSteps(_ context.Context, runID string) ([]StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bySeq, ok := m.steps[runID]
	if !ok || len(bySeq) == 0 {
		return nil, ErrNotFound
	}
	out := make([]StepRecord, 0, len(bySeq))
	for _, s := range bySeq {
		s.Outputs = copyMap(s.Outputs)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// ListRuns implements Store.
func (m *MemStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
