package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/churnforge/internal/db"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	experiment   TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	completed_at TEXT
);

CREATE TABLE IF NOT EXISTS params (
	run_id TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, key),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS metrics (
	run_id TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, key),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS artifacts (
	run_id TEXT NOT NULL,
	name   TEXT NOT NULL,
	path   TEXT NOT NULL,
	PRIMARY KEY (run_id, name),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);
`

// SQLiteStore is a file-backed Tracker.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path, creating it and its tables if needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create tracking dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; LogRun goroutines queue on the pool
	conn.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartRun(ctx context.Context, experiment string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, status, created_at) VALUES (?, ?, ?, ?)`,
		id, experiment, db.StatusRunning, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) LogParam(ctx context.Context, runID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value`,
		runID, key, value,
	)
	if err != nil {
		return fmt.Errorf("log param %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) LogMetric(ctx context.Context, runID, key string, value float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (run_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value`,
		runID, key, value,
	)
	if err != nil {
		return fmt.Errorf("log metric %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) LogArtifact(ctx context.Context, runID, name, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, name, path) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, name) DO UPDATE SET path = excluded.path`,
		runID, name, path,
	)
	if err != nil {
		return fmt.Errorf("log artifact %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) EndRun(ctx context.Context, runID, status string) error {
	if !db.ValidStatus(status) {
		return fmt.Errorf("invalid run status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), runID,
	)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end run: run %s not found", runID)
	}
	return nil
}

// GetRun loads a run with its params, metrics and artifacts. It returns nil
// when the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*db.Run, error) {
	var (
		id, experiment, status, createdAt string
		completedAt                       sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, experiment, status, created_at, completed_at FROM runs WHERE id = ?`, runID,
	).Scan(&id, &experiment, &status, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	run := &db.Run{
		Experiment: experiment,
		Status:     status,
		Params:     map[string]string{},
		Metrics:    map[string]float64{},
		Artifacts:  map[string]string{},
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if completedAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		run.CompletedAt = &ts
	}

	if err := s.collect(ctx, `SELECT key, value FROM params WHERE run_id = ?`, runID, func(rows *sql.Rows) error {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		run.Params[k] = v
		return nil
	}); err != nil {
		return nil, fmt.Errorf("get params: %w", err)
	}
	if err := s.collect(ctx, `SELECT key, value FROM metrics WHERE run_id = ?`, runID, func(rows *sql.Rows) error {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		run.Metrics[k] = v
		return nil
	}); err != nil {
		return nil, fmt.Errorf("get metrics: %w", err)
	}
	if err := s.collect(ctx, `SELECT name, path FROM artifacts WHERE run_id = ?`, runID, func(rows *sql.Rows) error {
		var name, path string
		if err := rows.Scan(&name, &path); err != nil {
			return err
		}
		run.Artifacts[name] = path
		return nil
	}); err != nil {
		return nil, fmt.Errorf("get artifacts: %w", err)
	}
	return run, nil
}

// ListRuns returns the IDs of runs in experiment, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, experiment string) ([]string, error) {
	var ids []string
	err := s.collect(ctx, `SELECT id FROM runs WHERE experiment = ? ORDER BY created_at DESC`, experiment, func(rows *sql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) collect(ctx context.Context, query string, arg any, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
