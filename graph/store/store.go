// Package store persists run history: one record per run and one record per
// executed or skipped node.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store persists the history of graph runs.
//
// Implementations must be safe for concurrent use: one engine may run several
// graphs at once and each run writes its own records.
type Store interface {
	// SaveStep records the outcome of one node within a run.
	// A step with the same runID and step number is replaced.
	SaveStep(ctx context.Context, step StepRecord) error

	// SaveRun records or replaces the outcome of a run.
	SaveRun(ctx context.Context, run RunRecord) error

	// LoadRun returns the run record, or ErrNotFound.
	LoadRun(ctx context.Context, runID string) (RunRecord, error)

	// LoadSteps returns the run's steps ordered by step number, or ErrNotFound
	// when the run has no steps.
	LoadSteps(ctx context.Context, runID string) ([]StepRecord, error)

	// ListRuns returns up to limit runs, most recently started first.
	// A limit <= 0 returns every run.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// Step statuses.
const (
	StepExecuted = "executed"
	StepSkipped  = "skipped"
	StepFailed   = "failed"
)

// StepRecord is the persisted outcome of one node in a run.
type StepRecord struct {
	RunID    string         `json:"run_id"`
	Step     int            `json:"step"`
	NodeID   string         `json:"node_id"`
	NodeType string         `json:"node_type"`
	Status   string         `json:"status"`
	Outputs  map[string]any `json:"outputs,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RunRecord is the persisted outcome of a run.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	Input      string    `json:"input,omitempty"`
	Output     any       `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
