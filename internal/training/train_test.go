package training

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/churnforge/internal/artifact"
	"github.com/jonathan/churnforge/internal/contract"
	"github.com/jonathan/churnforge/internal/db"
	"github.com/jonathan/churnforge/internal/features"
	"github.com/jonathan/churnforge/internal/model"
	"github.com/jonathan/churnforge/internal/table"
	"github.com/jonathan/churnforge/internal/target"
	"github.com/jonathan/churnforge/internal/tracking"
)

// churnCSV renders a small telco-style dataset where month-to-month customers
// with short tenure churn.
func churnCSV(rows int) string {
	var b strings.Builder
	b.WriteString("customerID,gender,tenure,MonthlyCharges,Contract,Churn\n")
	for i := range rows {
		churn := i%3 == 0
		contractType, tenure, label := "Two year", 30+i, "No"
		if churn {
			contractType, tenure, label = "Month-to-month", 1+i%5, "Yes"
		}
		charges := fmt.Sprintf("%.2f", 20+float64(i%7)*10)
		if i == 4 {
			charges = ""
		}
		gender := "Female"
		if i%2 == 0 {
			gender = "Male"
		}
		fmt.Fprintf(&b, "C%03d,%s,%d,%s,%s,%s\n", i, gender, tenure, charges, contractType, label)
	}
	return b.String()
}

func churnTable(t *testing.T, rows int) *table.Table {
	t.Helper()
	tbl, err := table.ParseCSV(strings.NewReader(churnCSV(rows)))
	require.NoError(t, err)
	return tbl
}

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	contractPath := filepath.Join(dir, "contracts", "churn_contract.json")
	_, err := contract.Init(contractPath)
	require.NoError(t, err)
	return Options{
		ContractPath: contractPath,
		ReportPath:   filepath.Join(dir, "reports", "validation.json"),
		ArtifactPath: filepath.Join(dir, "models", "model.json"),
		Seed:         42,
	}
}

func TestTrain_EndToEnd(t *testing.T) {
	opts := testOptions(t)
	store, err := tracking.OpenSQLite(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	defer store.Close()
	opts.Tracker = store

	var stages []string
	opts.OnProgress = func(e ProgressEvent) { stages = append(stages, e.Stage) }

	result, err := Train(context.Background(), churnTable(t, 60), opts)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, opts.ArtifactPath, result.ModelPath)
	assert.Equal(t, model.KindLogistic, result.ModelType)
	assert.GreaterOrEqual(t, result.Accuracy, 0.9)
	assert.Greater(t, result.F1, 0.0)
	assert.Equal(t, []string{"tenure", "MonthlyCharges"}, result.NumericColumns)
	assert.Equal(t, []string{"gender", "Contract"}, result.CategoricalColumns)
	assert.Equal(t, 60, result.TrainRows+result.TestRows)
	assert.Equal(t, []string{
		StageNormalize, StageContract, StageValidate, StageSplit,
		StageFit, StageEvaluate, StagePersist, StageTrack,
	}, stages)

	report, err := contract.ReadReport(opts.ReportPath)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 60, report.RowCount)

	loaded, err := artifact.Load(opts.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, loaded.RunID)

	run, err := store.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, db.StatusFinished, run.Status)
	assert.Equal(t, tracking.DefaultExperiment, run.Experiment)
	assert.Equal(t, "logistic", run.Params["model"])
	assert.Equal(t, "2", run.Params["num_cols"])
	assert.Equal(t, "2", run.Params["cat_cols"])
	assert.Equal(t, "tenure,MonthlyCharges", run.Params["numeric_columns"])
	assert.Equal(t, "gender,Contract", run.Params["categorical_columns"])
	assert.InDelta(t, result.Accuracy, run.Metrics["accuracy"], 1e-12)
	assert.InDelta(t, result.F1, run.Metrics["f1"], 1e-12)
	assert.Equal(t, opts.ArtifactPath, run.Artifacts["model"])
}

func TestTrain_WithoutTracker(t *testing.T) {
	opts := testOptions(t)
	opts.Model = model.KindMajority

	result, err := Train(context.Background(), churnTable(t, 30), opts)
	require.NoError(t, err)
	assert.Equal(t, model.KindMajority, result.ModelType)
	assert.True(t, artifact.Exists(opts.ArtifactPath))
}

func TestTrain_GateFailureWritesNoArtifact(t *testing.T) {
	opts := testOptions(t)
	c := contract.Default()
	c.RequiredColumns = append(c.RequiredColumns, "TotalCharges")
	require.NoError(t, contract.Write(opts.ContractPath, c))

	_, err := Train(context.Background(), churnTable(t, 30), opts)
	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, []string{"Missing required column: TotalCharges"}, gate.Report.Errors)
	assert.False(t, artifact.Exists(opts.ArtifactPath))

	report, err := contract.ReadReport(opts.ReportPath)
	require.NoError(t, err)
	assert.False(t, report.Success)
}

func TestTrain_ContractMissing(t *testing.T) {
	opts := testOptions(t)
	opts.ContractPath = filepath.Join(t.TempDir(), "absent.json")

	_, err := Train(context.Background(), churnTable(t, 30), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrContractMissing))
	assert.False(t, artifact.Exists(opts.ArtifactPath))
}

func TestTrain_NormalizationFailure(t *testing.T) {
	opts := testOptions(t)
	raw := strings.Replace(churnCSV(30), ",Yes\n", ",Maybe\n", 1)
	tbl, err := table.ParseCSV(strings.NewReader(raw))
	require.NoError(t, err)

	_, err = Train(context.Background(), tbl, opts)
	var normErr *target.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, []string{"Maybe"}, normErr.Offending)
	assert.False(t, artifact.Exists(opts.ArtifactPath))
}

func TestTrain_NonFiniteNumberFailsBeforeSave(t *testing.T) {
	opts := testOptions(t)
	store, err := tracking.OpenSQLite(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	defer store.Close()
	opts.Tracker = store

	raw := strings.Replace(churnCSV(30), ",Male,1,20.00,", ",Male,inf,20.00,", 1)
	require.Contains(t, raw, ",inf,")
	tbl, err := table.ParseCSV(strings.NewReader(raw))
	require.NoError(t, err)

	_, err = Train(context.Background(), tbl, opts)
	var transformErr *features.TransformError
	require.ErrorAs(t, err, &transformErr)
	assert.Equal(t, "tenure", transformErr.Column)
	assert.Contains(t, err.Error(), "non-finite")
	assert.False(t, artifact.Exists(opts.ArtifactPath))

	runs, err := store.ListRuns(context.Background(), tracking.DefaultExperiment)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestTrain_OnlyTargetAndIDColumns(t *testing.T) {
	opts := testOptions(t)
	c := contract.Default()
	c.MinColumns = 1
	c.RequiredColumns = []string{"Churn"}
	require.NoError(t, contract.Write(opts.ContractPath, c))

	tbl, err := table.ParseCSV(strings.NewReader("customerID,Churn\nA,Yes\nB,No\nC,No\nD,Yes\n"))
	require.NoError(t, err)

	_, err = Train(context.Background(), tbl, opts)
	var noFeatures *target.NoFeaturesError
	require.ErrorAs(t, err, &noFeatures)
	assert.Contains(t, err.Error(), "no feature columns")
	assert.NotContains(t, err.Error(), "no rows")
	assert.False(t, artifact.Exists(opts.ArtifactPath))
}

func TestTrain_Canceled(t *testing.T) {
	opts := testOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Train(ctx, churnTable(t, 30), opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, artifact.Exists(opts.ArtifactPath))
}

func TestTrain_CanceledMidRun(t *testing.T) {
	opts := testOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	opts.OnProgress = func(e ProgressEvent) {
		if e.Stage == StageFit {
			cancel()
		}
	}

	_, err := Train(ctx, churnTable(t, 30), opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, artifact.Exists(opts.ArtifactPath))
}

func TestGateError_Message(t *testing.T) {
	err := &GateError{Report: contract.Report{Errors: []string{"a", "b"}}}
	assert.Equal(t, "data contract validation failed: a; b", err.Error())
}
