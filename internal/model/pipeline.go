package model

import (
	"errors"
	"fmt"

	"github.com/jonathan/churnforge/internal/features"
	"github.com/jonathan/churnforge/internal/table"
)

// Pipeline chains the feature preprocessor and the classifier. Once fitted it
// is read-only and safe for concurrent Predict calls.
type Pipeline struct {
	Preprocessor *features.Preprocessor
	Classifier   Classifier
}

// Fit fits the preprocessor on X, then the classifier on the encoded matrix.
func (p *Pipeline) Fit(X *table.Table, y []int) error {
	if p.Preprocessor == nil || p.Classifier == nil {
		return errors.New("pipeline needs a preprocessor and a classifier")
	}
	Xt, err := p.Preprocessor.FitTransform(X)
	if err != nil {
		return err
	}
	if err := p.Classifier.Fit(Xt, y); err != nil {
		return fmt.Errorf("failed to fit %s: %w", p.Classifier.Name(), err)
	}
	return nil
}

// Predict returns a label per row and, when the classifier supports it, the
// positive-class probability per row. Probabilities are nil otherwise.
func (p *Pipeline) Predict(X *table.Table) ([]int, []float64, error) {
	Xt, err := p.Preprocessor.Transform(X)
	if err != nil {
		return nil, nil, err
	}
	if pc, ok := p.Classifier.(ProbabilisticClassifier); ok {
		proba, err := pc.PredictProba(Xt)
		if err != nil {
			return nil, nil, err
		}
		return threshold(proba, 0.5), proba, nil
	}
	preds, err := p.Classifier.Predict(Xt)
	if err != nil {
		return nil, nil, err
	}
	return preds, nil, nil
}
