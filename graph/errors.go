package graph

import "errors"

// ErrHandlesSealed indicates an attempt to declare a handle on a node that has
// already been added to a graph.
var ErrHandlesSealed = errors.New("handles cannot be declared after the node joins a graph")

// ErrRunFailed is wrapped by every error returned for a failed run.
var ErrRunFailed = errors.New("run failed")

// ErrNoResponse indicates a run settled without executing a terminal node.
var ErrNoResponse = errors.New("run finished without reaching a response node")

// EngineError represents an error from graph construction or engine operations.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// NodeError represents an uncaught failure raised by a node behavior.
// It aborts the run that produced it.
type NodeError struct {
	// NodeID identifies which node produced this error.
	NodeID string

	// NodeType is the registry type of the failing node.
	NodeType string

	// Message is the human-readable error description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// RunError is returned by Engine.Run when a run does not succeed.
type RunError struct {
	RunID  string
	Status RunStatus
	Reason string
	Cause  error
}

func (e *RunError) Error() string {
	return "run " + e.RunID + " " + string(e.Status) + ": " + e.Reason
}

// Unwrap exposes both ErrRunFailed and the underlying cause.
func (e *RunError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrRunFailed, e.Cause}
	}
	return []error{ErrRunFailed}
}
