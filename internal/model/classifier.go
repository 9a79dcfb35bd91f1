// Package model provides the binary classifiers, evaluation metrics and the
// fitted pipeline that couples a preprocessor to a classifier.
package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrNotFitted is returned when a classifier is used before Fit.
var ErrNotFitted = errors.New("classifier is not fitted")

// Classifier is a binary classifier over labels 0 and 1.
type Classifier interface {
	Name() Kind
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) ([]int, error)
}

// ProbabilisticClassifier also reports P(y=1) for each row.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(X mat.Matrix) ([]float64, error)
}

// Kind names a classifier implementation.
type Kind string

const (
	KindLogistic Kind = "logistic"
	KindMajority Kind = "majority"
)

// Options are the hyperparameters shared by the classifier factory.
type Options struct {
	MaxIter      int
	LearningRate float64
	L2           float64
	Tolerance    float64
}

// DefaultOptions returns the training defaults.
func DefaultOptions() Options {
	return Options{
		MaxIter:      1000,
		LearningRate: 0.1,
		L2:           0.01,
		Tolerance:    1e-6,
	}
}

// New returns an unfit classifier of the given kind. Zero-valued options take
// their defaults.
func New(kind Kind, opts Options) (Classifier, error) {
	switch kind {
	case KindLogistic, "":
		return NewLogisticRegression(opts), nil
	case KindMajority:
		return &Majority{}, nil
	default:
		return nil, fmt.Errorf("unknown model type %q", kind)
	}
}

// Decode rebuilds a fitted classifier from its serialized form.
func Decode(kind Kind, data []byte) (Classifier, error) {
	var c Classifier
	switch kind {
	case KindLogistic:
		c = &LogisticRegression{}
	case KindMajority:
		c = &Majority{}
	default:
		return nil, fmt.Errorf("unknown model type %q", kind)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode %s classifier: %w", kind, err)
	}
	return c, nil
}

func checkTraining(X mat.Matrix, y []int) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 {
		return 0, 0, errors.New("cannot fit on zero rows")
	}
	if rows != len(y) {
		return 0, 0, fmt.Errorf("feature rows (%d) do not match labels (%d)", rows, len(y))
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return 0, 0, fmt.Errorf("label at row %d is %d, want 0 or 1", i, label)
		}
	}
	return rows, cols, nil
}
