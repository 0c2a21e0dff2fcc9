package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// sqlHistory holds the queries shared by the SQL-backed stores. Only the
// upsert statements differ between dialects.
type sqlHistory struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool

	upsertStep string
	upsertRun  string
}

func (s *sqlHistory) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *sqlHistory) saveStep(ctx context.Context, step StepRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	outputs, err := json.Marshal(step.Outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.upsertStep,
		step.RunID, step.Step, step.NodeID, step.NodeType, step.Status,
		string(outputs), step.Error, step.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

func (s *sqlHistory) saveRun(ctx context.Context, run RunRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	output, err := json.Marshal(run.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.upsertRun,
		run.RunID, run.Status, run.Input, string(output), run.Error,
		unixNano(run.StartedAt), unixNano(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT run_id, status, input, output, error, started_at, finished_at
	FROM agent_runs
`

func (s *sqlHistory) loadRun(ctx context.Context, runID string) (RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return RunRecord{}, err
	}

	row := s.db.QueryRowContext(ctx, selectRun+" WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

func (s *sqlHistory) listRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := selectRun + " ORDER BY started_at DESC, run_id ASC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *sqlHistory) loadSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step, node_id, node_type, status, outputs, error, duration_ms
		FROM agent_steps
		WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var (
			st         StepRecord
			outputs    string
			durationMs int64
		)
		if err := rows.Scan(&st.RunID, &st.Step, &st.NodeID, &st.NodeType, &st.Status, &outputs, &st.Error, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if err := json.Unmarshal([]byte(outputs), &st.Outputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
		}
		st.Duration = time.Duration(durationMs) * time.Millisecond
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, ErrNotFound
	}
	return steps, nil
}

func (s *sqlHistory) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run               RunRecord
		output            string
		started, finished int64
	)
	if err := row.Scan(&run.RunID, &run.Status, &run.Input, &output, &run.Error, &started, &finished); err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal([]byte(output), &run.Output); err != nil {
		return RunRecord{}, fmt.Errorf("failed to unmarshal output: %w", err)
	}
	run.StartedAt = fromUnixNano(started)
	run.FinishedAt = fromUnixNano(finished)
	return run, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
