package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is an L2-regularized binary logistic regression trained
// with full-batch gradient descent on standardized features.
type LogisticRegression struct {
	opts Options

	fitted     bool
	weights    []float64
	bias       float64
	mean       []float64
	scale      []float64
	iterations int
}

// NewLogisticRegression returns an unfit model. Zero-valued options take defaults.
func NewLogisticRegression(opts Options) *LogisticRegression {
	def := DefaultOptions()
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = def.LearningRate
	}
	if opts.L2 < 0 {
		opts.L2 = def.L2
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	return &LogisticRegression{opts: opts}
}

func (m *LogisticRegression) Name() Kind { return KindLogistic }

// Iterations reports how many gradient steps the last Fit took.
func (m *LogisticRegression) Iterations() int { return m.iterations }

// Fit learns the weights. Both classes must be present.
func (m *LogisticRegression) Fit(X mat.Matrix, y []int) error {
	rows, cols, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	positives := 0
	for _, label := range y {
		positives += label
	}
	if positives == 0 || positives == rows {
		return errors.New("logistic regression needs samples of both classes")
	}

	mean, scale := standardizer(X)
	Z := standardize(X, mean, scale)

	n := float64(rows)
	w := mat.NewVecDense(cols, nil)
	bias := 0.0
	z := mat.NewVecDense(rows, nil)
	resid := make([]float64, rows)
	residV := mat.NewVecDense(rows, resid)
	grad := mat.NewVecDense(cols, nil)

	iter := 0
	for iter < m.opts.MaxIter {
		iter++
		z.MulVec(Z, w)
		for i := range resid {
			resid[i] = sigmoid(z.AtVec(i)+bias) - float64(y[i])
		}
		grad.MulVec(Z.T(), residV)
		grad.ScaleVec(1/n, grad)
		grad.AddScaledVec(grad, m.opts.L2, w)
		gb := floats.Sum(resid) / n

		w.AddScaledVec(w, -m.opts.LearningRate, grad)
		bias -= m.opts.LearningRate * gb

		if math.Max(mat.Norm(grad, math.Inf(1)), math.Abs(gb)) < m.opts.Tolerance {
			break
		}
	}

	m.weights = mat.Col(nil, 0, w)
	m.bias = bias
	m.mean = mean
	m.scale = scale
	m.iterations = iter
	m.fitted = true
	return nil
}

// PredictProba returns P(y=1) per row.
func (m *LogisticRegression) PredictProba(X mat.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != len(m.weights) {
		return nil, fmt.Errorf("model expects %d features, got %d", len(m.weights), cols)
	}
	Z := standardize(X, m.mean, m.scale)
	z := mat.NewVecDense(rows, nil)
	z.MulVec(Z, mat.NewVecDense(cols, m.weights))

	out := make([]float64, rows)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.bias)
	}
	return out, nil
}

// Predict thresholds the probabilities at 0.5.
func (m *LogisticRegression) Predict(X mat.Matrix) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return threshold(proba, 0.5), nil
}

func threshold(proba []float64, cut float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= cut {
			out[i] = 1
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// standardizer returns the per-column mean and population standard deviation.
// Constant columns get a scale of 1.
func standardizer(X mat.Matrix) (mean, scale []float64) {
	rows, cols := X.Dims()
	mean = make([]float64, cols)
	scale = make([]float64, cols)
	col := make([]float64, rows)
	for j := range cols {
		mat.Col(col, j, X)
		mu := floats.Sum(col) / float64(rows)
		ss := 0.0
		for _, v := range col {
			ss += (v - mu) * (v - mu)
		}
		sd := math.Sqrt(ss / float64(rows))
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		mean[j] = mu
		scale[j] = sd
	}
	return mean, scale
}

func standardize(X mat.Matrix, mean, scale []float64) *mat.Dense {
	var Z mat.Dense
	Z.Apply(func(_, j int, v float64) float64 {
		return (v - mean[j]) / scale[j]
	}, X)
	return &Z
}

type logisticState struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	MaxIter      int       `json:"max_iter"`
	LearningRate float64   `json:"learning_rate"`
	L2           float64   `json:"l2"`
	Iterations   int       `json:"iterations"`
}

func (m *LogisticRegression) MarshalJSON() ([]byte, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(logisticState{
		Weights:      m.weights,
		Bias:         m.bias,
		Mean:         m.mean,
		Scale:        m.scale,
		MaxIter:      m.opts.MaxIter,
		LearningRate: m.opts.LearningRate,
		L2:           m.opts.L2,
		Iterations:   m.iterations,
	})
}

func (m *LogisticRegression) UnmarshalJSON(data []byte) error {
	var s logisticState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s.Weights) == 0 || len(s.Mean) != len(s.Weights) || len(s.Scale) != len(s.Weights) {
		return errors.New("logistic state has inconsistent dimensions")
	}
	for _, sd := range s.Scale {
		if sd == 0 {
			return errors.New("logistic state has a zero scale")
		}
	}
	*m = LogisticRegression{
		opts:       NewLogisticRegression(Options{MaxIter: s.MaxIter, LearningRate: s.LearningRate, L2: s.L2}).opts,
		fitted:     true,
		weights:    s.Weights,
		bias:       s.Bias,
		mean:       s.Mean,
		scale:      s.Scale,
		iterations: s.Iterations,
	}
	return nil
}
