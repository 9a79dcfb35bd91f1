package model

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/jonathan/churnforge/internal/features"
	"github.com/jonathan/churnforge/internal/table"
)

// separable returns rows where label 1 has a large first feature.
func separable(n int, seed int64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for i := range n {
		y[i] = i % 2
		X.Set(i, 0, float64(y[i])*4+rng.NormFloat64()*0.5)
		X.Set(i, 1, rng.NormFloat64())
	}
	return X, y
}

func TestLogisticRegression_LearnsSeparableData(t *testing.T) {
	X, y := separable(200, 1)
	m := NewLogisticRegression(Options{})
	require.NoError(t, m.Fit(X, y))
	assert.Greater(t, m.Iterations(), 0)

	preds, err := m.Predict(X)
	require.NoError(t, err)
	assert.Greater(t, Accuracy(y, preds), 0.95)

	proba, err := m.PredictProba(X)
	require.NoError(t, err)
	for _, p := range proba {
		assert.True(t, p >= 0 && p <= 1)
	}
}

func TestLogisticRegression_Errors(t *testing.T) {
	m := NewLogisticRegression(Options{})

	_, err := m.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.Error(t, m.Fit(mat.NewDense(2, 1, []float64{1, 2}), []int{1, 1}), "single class")
	assert.Error(t, m.Fit(mat.NewDense(2, 1, []float64{1, 2}), []int{0}), "length mismatch")
	assert.Error(t, m.Fit(mat.NewDense(2, 1, []float64{1, 2}), []int{0, 2}), "bad label")

	X, y := separable(20, 2)
	require.NoError(t, m.Fit(X, y))
	_, err = m.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err, "width mismatch")
}

func TestLogisticRegression_ConstantColumn(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		8, 7,
		9, 7,
	})
	m := NewLogisticRegression(Options{})
	require.NoError(t, m.Fit(X, []int{0, 0, 1, 1}))

	preds, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, preds)
}

func TestLogisticRegression_JSONRoundTrip(t *testing.T) {
	X, y := separable(50, 3)
	m := NewLogisticRegression(Options{MaxIter: 200})
	require.NoError(t, m.Fit(X, y))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	restored, err := Decode(KindLogistic, data)
	require.NoError(t, err)

	want, err := m.PredictProba(X)
	require.NoError(t, err)
	got, err := restored.(ProbabilisticClassifier).PredictProba(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestMajority(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	m := &Majority{}
	_, err := m.Predict(X)
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, m.Fit(X, []int{1, 1, 0}))
	preds, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, preds)

	require.NoError(t, m.Fit(mat.NewDense(2, 1, nil), []int{1, 0}))
	preds, _ = m.Predict(X)
	assert.Equal(t, []int{0, 0, 0}, preds, "ties go to 0")

	var _ Classifier = m
	_, probabilistic := Classifier(m).(ProbabilisticClassifier)
	assert.False(t, probabilistic)
}

func TestNewAndDecode(t *testing.T) {
	c, err := New(KindLogistic, Options{})
	require.NoError(t, err)
	assert.Equal(t, KindLogistic, c.Name())

	c, err = New(KindMajority, Options{})
	require.NoError(t, err)
	assert.Equal(t, KindMajority, c.Name())

	_, err = New("forest", Options{})
	assert.Error(t, err)

	_, err = Decode(KindMajority, []byte(`{"class":3}`))
	assert.Error(t, err)
	_, err = Decode(KindLogistic, []byte(`{"weights":[1],"mean":[0],"scale":[0]}`))
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	tests := []struct {
		name          string
		yTrue, yPred  []int
		acc, prec, f1 float64
	}{
		{"perfect", []int{0, 1, 1}, []int{0, 1, 1}, 1, 1, 1},
		{"no positives predicted", []int{0, 1}, []int{0, 0}, 0.5, 0, 0},
		{"mixed", []int{1, 1, 0, 0}, []int{1, 0, 1, 0}, 0.5, 0.5, 0.5},
		{"empty", nil, nil, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Evaluate(tt.yTrue, tt.yPred)
			assert.InDelta(t, tt.acc, m.Accuracy, 1e-9)
			assert.InDelta(t, tt.prec, m.Precision, 1e-9)
			assert.InDelta(t, tt.f1, m.F1, 1e-9)
		})
	}
}

func TestStratifiedSplit(t *testing.T) {
	labels := make([]int, 100)
	for i := range 30 {
		labels[i] = 1
	}

	train, test, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	positives := 0
	for _, v := range Select(labels, test) {
		positives += v
	}
	assert.Equal(t, 6, positives)

	seen := map[int]bool{}
	for _, r := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[r], "row %d appears twice", r)
		seen[r] = true
	}
	assert.Len(t, seen, 100)

	train2, test2, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestStratifiedSplit_Edges(t *testing.T) {
	_, _, err := StratifiedSplit([]int{0, 1}, 0, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit([]int{0}, 0.2, 1)
	assert.Error(t, err)

	train, test, err := StratifiedSplit([]int{0, 1, 0}, 0.2, 1)
	require.NoError(t, err)
	assert.Len(t, test, 1)
	assert.Len(t, train, 2)
}

func TestPipeline(t *testing.T) {
	X := table.MustNew(
		table.Column{Name: "tenure", Values: []table.Value{
			table.Number(1), table.Number(2), table.Number(3), table.Number(50), table.Missing(), table.Number(45),
		}},
		table.StringColumn("Contract", "Month", "Month", "Month", "Year", "Month", "Year"),
	)
	y := []int{1, 1, 1, 0, 1, 0}

	bundle := features.Build(X)
	p := &Pipeline{Preprocessor: bundle.Preprocessor, Classifier: NewLogisticRegression(Options{})}
	require.NoError(t, p.Fit(X, y))

	preds, proba, err := p.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, preds)
	assert.Len(t, proba, 6)

	row := table.MustNew(table.NumberColumn("tenure", 3), table.StringColumn("Contract", "Biennial"))
	preds, _, err = p.Predict(row)
	require.NoError(t, err)
	assert.Len(t, preds, 1)

	_, _, err = p.Predict(table.MustNew(table.NumberColumn("tenure", 3)))
	var transformErr *features.TransformError
	assert.ErrorAs(t, err, &transformErr)
}

func TestPipeline_MajorityHasNoProbabilities(t *testing.T) {
	X := table.MustNew(table.NumberColumn("x", 1, 2, 3))
	p := &Pipeline{Preprocessor: features.Build(X).Preprocessor, Classifier: &Majority{}}
	require.NoError(t, p.Fit(X, []int{0, 0, 1}))

	preds, proba, err := p.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, preds)
	assert.Nil(t, proba)
}
