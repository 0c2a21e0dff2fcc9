package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for production deployments where several engine processes share
// one run history.
//
// The DSN format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Never hardcode credentials; read the DSN from the environment
// (AGENTGRAPH_MYSQL_DSN in the CLI).
type MySQLStore struct {
	sqlHistory
}

// NewMySQLStore opens a MySQL-backed store and creates its tables.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore{sqlHistory{
		db: db,
		upsertStep: `
			INSERT INTO agent_steps (run_id, step, node_id, node_type, status, outputs, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				node_id = VALUES(node_id),
				node_type = VALUES(node_type),
				status = VALUES(status),
				outputs = VALUES(outputs),
				error = VALUES(error),
				duration_ms = VALUES(duration_ms)
		`,
		upsertRun: `
			INSERT INTO agent_runs (run_id, status, input, output, error, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				status = VALUES(status),
				input = VALUES(input),
				output = VALUES(output),
				error = VALUES(error),
				started_at = VALUES(started_at),
				finished_at = VALUES(finished_at)
		`,
	}}

	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	runsTable := `
		CREATE TABLE IF NOT EXISTS agent_runs (
			run_id VARCHAR(255) NOT NULL PRIMARY KEY,
			status VARCHAR(32) NOT NULL,
			input MEDIUMTEXT NOT NULL,
			output JSON NOT NULL,
			error TEXT NOT NULL,
			started_at BIGINT NOT NULL DEFAULT 0,
			finished_at BIGINT NOT NULL DEFAULT 0,
			INDEX idx_runs_started (started_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, runsTable); err != nil {
		return fmt.Errorf("failed to create agent_runs table: %w", err)
	}

	stepsTable := `
		CREATE TABLE IF NOT EXISTS agent_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			node_type VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			outputs JSON NOT NULL,
			error TEXT NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_run_id (run_id),
			UNIQUE KEY unique_run_step (run_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create agent_steps table: %w", err)
	}
	return nil
}

// SaveStep implements Store.
func (m *MySQLStore) SaveStep(ctx context.Context, step StepRecord) error {
	return m.saveStep(ctx, step)
}

// SaveRun implements Store.
func (m *MySQLStore) SaveRun(ctx context.Context, run RunRecord) error {
	return m.saveRun(ctx, run)
}

// LoadRun implements Store.
func (m *MySQLStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	return m.loadRun(ctx, runID)
}

// LoadSteps implements Store.
func (m *MySQLStore) LoadSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	return m.loadSteps(ctx, runID)
}

// ListRuns implements Store.
func (m *MySQLStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	return m.listRuns(ctx, limit)
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (m *MySQLStore) Stats() sql.DBStats {
	return m.db.Stats()
}

// Close closes the connection pool. Subsequent operations return ErrClosed.
func (m *MySQLStore) Close() error {
	return m.close()
}
