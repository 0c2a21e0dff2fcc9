package emit

// Event messages emitted by the engine.
const (
	MsgRunStart    = "run_start"
	MsgRunEnd      = "run_end"
	MsgNodeStart   = "node_start"
	MsgNodeEnd     = "node_end"
	MsgNodeSkipped = "node_skipped"
	MsgNodeError   = "node_error"
)

// Event represents an observability event emitted during a run.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Step is the 1-indexed position of the node in the run.
	// Zero for run-level events.
	Step int

	// NodeID identifies which node emitted this event.
	// Empty for run-level events.
	NodeID string

	// NodeType is the registry type of the node, when NodeID is set.
	NodeType string

	// Msg names the event (one of the Msg* constants).
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": node or run duration in milliseconds
	//   - "error": error details
	//   - "status": run outcome
	//   - "reason": why a node was skipped
	Meta map[string]interface{}
}
