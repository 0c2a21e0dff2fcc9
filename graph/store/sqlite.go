package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It keeps run history in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process deployments of the CLI server
//
// Schema:
//   - agent_runs: one row per run
//   - agent_steps: one row per node outcome
type SQLiteStore struct {
	sqlHistory
	path string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./agentgraph.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The store creates the file and tables if needed and enables WAL mode.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite supports one writer at a time
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &SQLiteStore{
		sqlHistory: sqlHistory{
			db: db,
			upsertStep: `
				INSERT INTO agent_steps (run_id, step, node_id, node_type, status, outputs, error, duration_ms)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(run_id, step) DO UPDATE SET
					node_id = excluded.node_id,
					node_type = excluded.node_type,
					status = excluded.status,
					outputs = excluded.outputs,
					error = excluded.error,
					duration_ms = excluded.duration_ms
			`,
			upsertRun: `
				INSERT INTO agent_runs (run_id, status, input, output, error, started_at, finished_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(run_id) DO UPDATE SET
					status = excluded.status,
					input = excluded.input,
					output = excluded.output,
					error = excluded.error,
					started_at = excluded.started_at,
					finished_at = excluded.finished_at
			`,
		},
		path: path,
	}

	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agent_runs (
			run_id TEXT NOT NULL PRIMARY KEY,
			status TEXT NOT NULL,
			input TEXT NOT NULL DEFAULT '',
			output TEXT NOT NULL DEFAULT 'null',
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL DEFAULT 0,
			finished_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON agent_runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS agent_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			node_type TEXT NOT NULL,
			status TEXT NOT NULL,
			outputs TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(run_id, step)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_run_id ON agent_steps(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveStep implements Store.
func (s *SQLiteStore) SaveStep(ctx context.Context, step StepRecord) error {
	return s.saveStep(ctx, step)
}

// SaveRun implements Store.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) error {
	return s.saveRun(ctx, run)
}

// LoadRun implements Store.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	return s.loadRun(ctx, runID)
}

// LoadSteps implements Store.
func (s *SQLiteStore) LoadSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	return s.loadSteps(ctx, runID)
}

// ListRuns implements Store.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	return s.listRuns(ctx, limit)
}

// Close closes the database. Subsequent operations return ErrClosed.
func (s *SQLiteStore) Close() error {
	return s.close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}
