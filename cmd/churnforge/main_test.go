package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/churnforge/internal/contract"
	"github.com/jonathan/churnforge/internal/tracking"
)

// workspace holds the file layout one CLI test works in.
type workspace struct {
	dir      string
	data     string
	contract string
	report   string
	model    string
	tracking string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	w := workspace{
		dir:      dir,
		data:     filepath.Join(dir, "data", "churn.csv"),
		contract: filepath.Join(dir, "contracts", "contract.json"),
		report:   filepath.Join(dir, "contracts", "validation_result.json"),
		model:    filepath.Join(dir, "artifacts", "model.json"),
		tracking: filepath.Join(dir, "artifacts", "tracking.db"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(w.data), 0755))
	require.NoError(t, os.WriteFile(w.data, []byte(churnCSV(60)), 0644))
	return w
}

func churnCSV(rows int) string {
	var b strings.Builder
	b.WriteString("customerID,gender,tenure,MonthlyCharges,Contract,Churn\n")
	for i := range rows {
		contractType, tenure, label := "Two year", 30+i, "No"
		if i%3 == 0 {
			contractType, tenure, label = "Month-to-month", 1+i%5, "Yes"
		}
		gender := "Female"
		if i%2 == 0 {
			gender = "Male"
		}
		fmt.Fprintf(&b, "C%03d,%s,%d,%.2f,%s,%s\n", i, gender, tenure, 20+float64(i%7)*10, contractType, label)
	}
	return b.String()
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestContractInit(t *testing.T) {
	w := newWorkspace(t)

	code, out, _ := run(t, "contract-init", "--path", w.contract)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "[Contract] Wrote: "+w.contract)

	c, err := contract.Load(w.contract)
	require.NoError(t, err)
	assert.Equal(t, contract.Default(), c)
}

func TestContractValidate(t *testing.T) {
	w := newWorkspace(t)
	_, err := contract.Init(w.contract)
	require.NoError(t, err)

	code, out, _ := run(t, "contract-validate", "--data", w.data, "--contract", w.contract, "--report", w.report)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "success=true")

	report, err := contract.ReadReport(w.report)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 60, report.RowCount)
}

func TestContractValidate_Failure(t *testing.T) {
	w := newWorkspace(t)
	c := contract.Default()
	c.RequiredColumns = []string{"Churn", "TotalCharges"}
	require.NoError(t, contract.Write(w.contract, c))

	code, out, _ := run(t, "contract-validate", "--data", w.data, "--contract", w.contract, "--report", w.report, "-v")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "success=false")
	assert.Contains(t, out, "Missing required column: TotalCharges")
	assert.Contains(t, out, "DATA CONTRACT VALIDATION")

	report, err := contract.ReadReport(w.report)
	require.NoError(t, err)
	assert.False(t, report.Success)
}

func TestContractValidate_MissingContract(t *testing.T) {
	w := newWorkspace(t)

	code, _, errOut := run(t, "contract-validate", "--data", w.data, "--contract", w.contract, "--report", w.report)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "missing contract")
	assert.Contains(t, errOut, "contract-init")
	assert.NoFileExists(t, w.report)
}

func TestContractValidate_MissingDataset(t *testing.T) {
	w := newWorkspace(t)

	code, _, errOut := run(t, "contract-validate", "--data", filepath.Join(w.dir, "nope.csv"), "--contract", w.contract)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "missing dataset")
}

func TestTrainAndPredict(t *testing.T) {
	w := newWorkspace(t)
	_, err := contract.Init(w.contract)
	require.NoError(t, err)

	code, out, errOut := run(t, "train",
		"--data", w.data, "--contract", w.contract, "--report", w.report,
		"--model", w.model, "--tracking-db", w.tracking, "--seed", "7")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Training complete:")
	assert.Contains(t, out, "model_path: "+w.model)
	assert.FileExists(t, w.model)

	store, err := tracking.OpenSQLite(w.tracking)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(t.Context(), tracking.DefaultExperiment)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	recorded, err := store.GetRun(t.Context(), runs[0])
	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.Equal(t, "finished", recorded.Status)
	assert.Contains(t, out, "run_id: "+runs[0])

	rowPath := filepath.Join(w.dir, "row.json")
	require.NoError(t, os.WriteFile(rowPath, []byte(`{"gender": "Male", "tenure": 2, "MonthlyCharges": 70.5, "Contract": "Month-to-month"}`), 0644))

	code, out, errOut = run(t, "predict", "--in", rowPath, "--model", w.model)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, `"churn_pred":1`)
	assert.Contains(t, out, `"churn_proba":`)

	nanPath := filepath.Join(w.dir, "nan.json")
	require.NoError(t, os.WriteFile(nanPath, []byte(`{"gender": "Male", "tenure": "NaN", "MonthlyCharges": 70.5, "Contract": "Month-to-month"}`), 0644))
	code, out, errOut = run(t, "predict", "--in", nanPath, "--model", w.model)
	assert.Equal(t, exitFailure, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "tenure")
	assert.Contains(t, errOut, "non-finite")
}

func TestTrain_ConfigFile(t *testing.T) {
	w := newWorkspace(t)
	_, err := contract.Init(w.contract)
	require.NoError(t, err)

	cfgPath := filepath.Join(w.dir, "churnforge.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
data_path: %s
contract_path: %s
report_path: %s
artifact_path: %s
tracking_db: %s
model:
  type: majority
`, w.data, w.contract, w.report, w.model, w.tracking)), 0644))

	code, out, errOut := run(t, "train", "--config", cfgPath, "--no-track", "-v")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Loaded config from")
	assert.Contains(t, out, "[fit]")
	assert.Contains(t, out, "TRAINING RESULT")
	assert.Contains(t, out, "majority")
	assert.NoFileExists(t, w.tracking)

	rowPath := filepath.Join(w.dir, "row.json")
	require.NoError(t, os.WriteFile(rowPath, []byte(`{"gender": "Male", "tenure": 2, "MonthlyCharges": 70.5, "Contract": "Month-to-month"}`), 0644))
	code, out, _ = run(t, "predict", "--config", cfgPath, "--in", rowPath)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, `"churn_proba":null`)
}

func TestTrain_GateFailure(t *testing.T) {
	w := newWorkspace(t)
	c := contract.Default()
	c.MinColumns = 50
	require.NoError(t, contract.Write(w.contract, c))

	code, out, errOut := run(t, "train",
		"--data", w.data, "--contract", w.contract, "--report", w.report,
		"--model", w.model, "--no-track")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "Expected at least 50 columns")
	assert.Contains(t, errOut, "data contract validation failed")
	assert.NoFileExists(t, w.model)
}

func TestPredict_Errors(t *testing.T) {
	w := newWorkspace(t)
	rowPath := filepath.Join(w.dir, "row.json")
	require.NoError(t, os.WriteFile(rowPath, []byte(`{"tenure": 2}`), 0644))

	code, _, errOut := run(t, "predict", "--in", rowPath, "--model", w.model)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "churnforge train")

	badPath := filepath.Join(w.dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`[1]`), 0644))
	code, _, errOut = run(t, "predict", "--in", badPath, "--model", w.model)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "invalid payload")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown command", []string{"bogus"}, "unknown command"},
		{"unknown flag", []string{"train", "--nope"}, "unknown flag"},
		{"missing required flag", []string{"predict"}, `required flag(s) "in" not set`},
		{"positional argument", []string{"contract-init", "extra"}, "unexpected argument"},
		{"bad flag value", []string{"train", "--seed", "abc"}, "invalid argument"},
		{"invalid test size", []string{"train", "--test-size", "1.5"}, "test_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			code, _, errOut := run(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestHelp(t *testing.T) {
	code, out, _ := run(t, "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "contract-validate")
	assert.Contains(t, out, "serve")
}
