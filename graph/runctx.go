package graph

import (
	"context"
	"log/slog"
	"time"
)

// RunRequest is the trigger of a run.
type RunRequest struct {
	// RunID identifies the run. A random ID is generated when empty.
	RunID string `json:"run_id,omitempty"`

	// Input is the triggering text, exposed by request nodes.
	Input string `json:"input"`

	// Values carries structured trigger data, exposed by request nodes.
	Values map[string]any `json:"values,omitempty"`
}

// Run is the per-run context node behaviors can reach through their
// context.Context.
type Run struct {
	ID        string
	Request   RunRequest
	StartedAt time.Time

	// Costs records the run's LLM usage. Never nil inside a run.
	Costs *CostTracker

	// Logger is scoped to the run.
	Logger *slog.Logger
}

type runKey struct{}

// ContextWithRun attaches a run to ctx.
func ContextWithRun(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, runKey{}, r)
}

// RunFromContext returns the run attached to ctx. Outside a run it returns a
// detached run with a default logger and a fresh cost tracker, so behaviors
// can be called directly in tests.
func RunFromContext(ctx context.Context) *Run {
	if r, ok := ctx.Value(runKey{}).(*Run); ok && r != nil {
		return r
	}
	return &Run{
		Costs:  NewCostTracker("", "USD"),
		Logger: slog.Default(),
	}
}
