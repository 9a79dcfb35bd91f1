// Package tracking records training runs: their parameters, metrics and
// artifacts. Runs go to a local SQLite file or to PostgreSQL.
package tracking

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/churnforge/internal/db"
)

// DefaultExperiment groups runs when no experiment name is configured.
const DefaultExperiment = "churnforge-mlops-lite"

// Tracker stores experiment runs. Implementations are safe for concurrent use.
type Tracker interface {
	StartRun(ctx context.Context, experiment string) (string, error)
	LogParam(ctx context.Context, runID, key, value string) error
	LogMetric(ctx context.Context, runID, key string, value float64) error
	LogArtifact(ctx context.Context, runID, name, path string) error
	EndRun(ctx context.Context, runID, status string) error
	Close() error
}

var (
	_ Tracker = (*SQLiteStore)(nil)
	_ Tracker = (*db.DB)(nil)
)

// Config selects the tracker backend.
type Config struct {
	DatabaseURL string
	SQLitePath  string
}

// Open returns a PostgreSQL tracker when DatabaseURL is set and a SQLite
// tracker at SQLitePath otherwise.
func Open(ctx context.Context, cfg Config) (Tracker, error) {
	if cfg.DatabaseURL != "" {
		pg, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("tracking needs a database URL or a sqlite path")
	}
	store, err := OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// LogRun writes params and metrics for runID concurrently. The first failure
// cancels the remaining writes and is returned.
func LogRun(ctx context.Context, tr Tracker, runID string, params map[string]string, metrics map[string]float64) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for k, v := range params {
		g.Go(func() error {
			return tr.LogParam(ctx, runID, k, v)
		})
	}
	for k, v := range metrics {
		g.Go(func() error {
			return tr.LogMetric(ctx, runID, k, v)
		})
	}
	return g.Wait()
}
