package tracking

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/churnforge/internal/db"
)

func tempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "mlruns", "tracking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, DefaultExperiment)
	require.NoError(t, err)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, db.StatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, s.LogParam(ctx, runID, "model", "logistic"))
	require.NoError(t, s.LogParam(ctx, runID, "model", "majority"))
	require.NoError(t, s.LogMetric(ctx, runID, "f1", 0.5))
	require.NoError(t, s.LogArtifact(ctx, runID, "model", "models/model.json"))
	require.NoError(t, s.EndRun(ctx, runID, db.StatusFinished))

	run, err = s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusFinished, run.Status)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, map[string]string{"model": "majority"}, run.Params)
	assert.Equal(t, map[string]float64{"f1": 0.5}, run.Metrics)
	assert.Equal(t, map[string]string{"model": "models/model.json"}, run.Artifacts)
}

func TestSQLiteStore_Errors(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	run, err := s.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, run)

	assert.Error(t, s.EndRun(ctx, uuid.NewString(), db.StatusFinished), "unknown run")
	assert.Error(t, s.LogParam(ctx, uuid.NewString(), "k", "v"), "foreign key")

	runID, err := s.StartRun(ctx, "e")
	require.NoError(t, err)
	assert.Error(t, s.EndRun(ctx, runID, "done"))
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	first, err := s.StartRun(ctx, "a")
	require.NoError(t, err)
	_, err = s.StartRun(ctx, "b")
	require.NoError(t, err)
	second, err := s.StartRun(ctx, "a")
	require.NoError(t, err)

	ids, err := s.ListRuns(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, ids)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	runID, err := s.StartRun(context.Background(), "e")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	run, err := s.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.NotNil(t, run)
}

func TestLogRun(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	runID, err := s.StartRun(ctx, DefaultExperiment)
	require.NoError(t, err)

	params := map[string]string{"model": "logistic", "num_cols": "3", "cat_cols": "2"}
	metrics := map[string]float64{"accuracy": 0.75, "f1": 0.6}
	require.NoError(t, LogRun(ctx, s, runID, params, metrics))

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, params, run.Params)
	assert.Equal(t, metrics, run.Metrics)
}

type failingTracker struct {
	mu     sync.Mutex
	params []string
}

func (f *failingTracker) StartRun(context.Context, string) (string, error) { return "r", nil }
func (f *failingTracker) LogParam(_ context.Context, _, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, key)
	return nil
}
func (f *failingTracker) LogMetric(_ context.Context, _, key string, _ float64) error {
	return fmt.Errorf("metric %s rejected", key)
}
func (f *failingTracker) LogArtifact(context.Context, string, string, string) error { return nil }
func (f *failingTracker) EndRun(context.Context, string, string) error              { return nil }
func (f *failingTracker) Close() error                                               { return nil }

func TestLogRun_ReturnsFirstError(t *testing.T) {
	tr := &failingTracker{}
	err := LogRun(context.Background(), tr, "r", map[string]string{"a": "1"}, map[string]float64{"f1": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestLogRun_CanceledContext(t *testing.T) {
	s := tempStore(t)
	runID, err := s.StartRun(context.Background(), "e")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = LogRun(ctx, s, runID, map[string]string{"a": "1"}, nil)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestOpen(t *testing.T) {
	tr, err := Open(context.Background(), Config{SQLitePath: filepath.Join(t.TempDir(), "t.db")})
	require.NoError(t, err)
	defer tr.Close()
	assert.IsType(t, &SQLiteStore{}, tr)

	_, err = Open(context.Background(), Config{})
	assert.Error(t, err)
}
