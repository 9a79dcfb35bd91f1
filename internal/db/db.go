// Package db provides PostgreSQL storage for experiment tracking.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracking_runs (
	id           UUID PRIMARY KEY,
	experiment   TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS tracking_params (
	run_id UUID NOT NULL REFERENCES tracking_runs(id) ON DELETE CASCADE,
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, key)
);

CREATE TABLE IF NOT EXISTS tracking_metrics (
	run_id UUID NOT NULL REFERENCES tracking_runs(id) ON DELETE CASCADE,
	key    TEXT NOT NULL,
	value  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, key)
);

CREATE TABLE IF NOT EXISTS tracking_artifacts (
	run_id UUID NOT NULL REFERENCES tracking_runs(id) ON DELETE CASCADE,
	name   TEXT NOT NULL,
	path   TEXT NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database and creates the
// tracking tables when they are missing
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate tracking schema: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// StartRun creates a new run record and returns its ID
func (db *DB) StartRun(ctx context.Context, experiment string) (string, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tracking_runs (id, experiment, status) VALUES ($1, $2, $3)`,
		id, experiment, StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id.String(), nil
}

// LogParam records a run parameter, replacing any earlier value for key
func (db *DB) LogParam(ctx context.Context, runID, key, value string) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO tracking_params (run_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, key) DO UPDATE SET value = $3`,
		id, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to log param %s: %w", key, err)
	}
	return nil
}

// LogMetric records a run metric, replacing any earlier value for key
func (db *DB) LogMetric(ctx context.Context, runID, key string, value float64) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO tracking_metrics (run_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, key) DO UPDATE SET value = $3`,
		id, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to log metric %s: %w", key, err)
	}
	return nil
}

// LogArtifact records where a run artifact was written
func (db *DB) LogArtifact(ctx context.Context, runID, name, path string) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO tracking_artifacts (run_id, name, path) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, name) DO UPDATE SET path = $3`,
		id, name, path,
	)
	if err != nil {
		return fmt.Errorf("failed to log artifact %s: %w", name, err)
	}
	return nil
}

// EndRun marks a run as finished or failed
func (db *DB) EndRun(ctx context.Context, runID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid run status %q", status)
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE tracking_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun loads a run with its params, metrics and artifacts. It returns nil
// when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	run := Run{
		Params:    map[string]string{},
		Metrics:   map[string]float64{},
		Artifacts: map[string]string{},
	}
	err = db.pool.QueryRow(ctx,
		`SELECT id, experiment, status, created_at, completed_at FROM tracking_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Experiment, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := db.pool.Query(ctx, `SELECT key, value FROM tracking_params WHERE run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get params: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan param: %w", err)
		}
		run.Params[k] = v
	}
	rows.Close()

	rows, err = db.pool.Query(ctx, `SELECT key, value FROM tracking_metrics WHERE run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		run.Metrics[k] = v
	}
	rows.Close()

	rows, err = db.pool.Query(ctx, `SELECT name, path FROM tracking_artifacts WHERE run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get artifacts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, path string
		if err := rows.Scan(&name, &path); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		run.Artifacts[name] = path
	}
	return &run, rows.Err()
}
