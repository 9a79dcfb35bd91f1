package model

import (
	"encoding/json"
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Majority always predicts the most frequent training label. Ties go to 0.
// It reports no probabilities.
type Majority struct {
	fitted bool
	class  int
}

func (m *Majority) Name() Kind { return KindMajority }

func (m *Majority) Fit(X mat.Matrix, y []int) error {
	rows, _, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	positives := 0
	for _, label := range y {
		positives += label
	}
	m.class = 0
	if positives*2 > rows {
		m.class = 1
	}
	m.fitted = true
	return nil
}

func (m *Majority) Predict(X mat.Matrix) ([]int, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	rows, _ := X.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = m.class
	}
	return out, nil
}

func (m *Majority) MarshalJSON() ([]byte, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(struct {
		Class int `json:"class"`
	}{m.class})
}

func (m *Majority) UnmarshalJSON(data []byte) error {
	var s struct {
		Class *int `json:"class"`
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Class == nil || (*s.Class != 0 && *s.Class != 1) {
		return errors.New("majority state needs class 0 or 1")
	}
	m.class = *s.Class
	m.fitted = true
	return nil
}
