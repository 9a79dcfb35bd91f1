package model

// Metrics summarizes binary classification quality on a held-out set.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluate computes Metrics with 1 as the positive class.
func Evaluate(yTrue, yPred []int) Metrics {
	prec, rec, f1 := PrecisionRecallF1(yTrue, yPred)
	return Metrics{
		Accuracy:  Accuracy(yTrue, yPred),
		Precision: prec,
		Recall:    rec,
		F1:        f1,
	}
}

// Accuracy is the share of matching labels. Empty input scores 0.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores the positive class. Undefined ratios are 0.
func PrecisionRecallF1(yTrue, yPred []int) (prec, rec, f1 float64) {
	var tp, fp, fn float64
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1 && yTrue[i] == 0:
			fp++
		case yPred[i] == 0 && yTrue[i] == 1:
			fn++
		}
	}
	if tp+fp > 0 {
		prec = tp / (tp + fp)
	}
	if tp+fn > 0 {
		rec = tp / (tp + fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return prec, rec, f1
}
