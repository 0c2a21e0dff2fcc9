package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, grouped by
// run ID.
//
// Use cases:
//   - Testing and validation
//   - Development and debugging
//   - Post-run analysis of skipped or failing nodes
//
// Warning: events are never evicted automatically. Call Clear for long-lived
// processes.
//
// Example usage:
//
//	emitter := emit.NewBufferedEmitter()
//	engine, _ := graph.NewEngine(registry, graph.WithEmitter(emitter))
//	result, _ := engine.Run(ctx, g, params, graph.RunRequest{RunID: "run-001"})
//
//	skipped := emitter.GetHistoryWithFilter("run-001", emit.HistoryFilter{Msg: emit.MsgNodeSkipped})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events
}

// HistoryFilter specifies criteria for filtering run history.
//
// All fields are optional and combined with AND logic.
type HistoryFilter struct {
	NodeID   string // Filter by node ID (empty = no filter)
	NodeType string // Filter by node type (empty = no filter)
	Msg      string // Filter by message (empty = no filter)
}

func (f HistoryFilter) empty() bool {
	return f.NodeID == "" && f.NodeType == "" && f.Msg == ""
}

func (f HistoryFilter) matches(event Event) bool {
	if f.NodeID != "" && event.NodeID != f.NodeID {
		return false
	}
	if f.NodeType != "" && event.NodeType != f.NodeType {
		return false
	}
	if f.Msg != "" && event.Msg != f.Msg {
		return false
	}
	return true
}

// NewBufferedEmitter creates a new BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// GetHistory returns a copy of all events for a run, in emission order.
// Returns an empty slice for unknown runs.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	return b.GetHistoryWithFilter(runID, HistoryFilter{})
}

// GetHistoryWithFilter returns a copy of the run's events that match filter.
func (b *BufferedEmitter) GetHistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	result := make([]Event, 0, len(events))
	for _, event := range events {
		if filter.empty() || filter.matches(event) {
			result = append(result, event)
		}
	}
	return result
}

// NodeOrder returns the IDs of nodes that started in the run, in order.
func (b *BufferedEmitter) NodeOrder(runID string) []string {
	var ids []string
	for _, e := range b.GetHistoryWithFilter(runID, HistoryFilter{Msg: MsgNodeStart}) {
		ids = append(ids, e.NodeID)
	}
	return ids
}

// Clear removes stored events for one run, or for all runs when runID is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, runID)
}
