package features

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jonathan/churnforge/internal/table"
)

// State is the lifecycle position of a Preprocessor.
type State int

const (
	Unfit State = iota
	Fitting
	Fitted
)

func (s State) String() string {
	switch s {
	case Fitting:
		return "fitting"
	case Fitted:
		return "fitted"
	default:
		return "unfit"
	}
}

// Preprocessor imputes and encodes a table into a numeric matrix. Numeric
// columns are median-imputed; categorical columns are mode-imputed and one-hot
// encoded. Statistics are learned by Fit and frozen until the next Fit. A fitted
// Preprocessor is read-only and safe for concurrent Transform calls.
type Preprocessor struct {
	numeric     []string
	categorical []string

	state      State
	medians    []float64
	modes      []string
	categories [][]string
}

// NewPreprocessor returns an unfit preprocessor for the given column partition.
func NewPreprocessor(numeric, categorical []string) *Preprocessor {
	return &Preprocessor{
		numeric:     append([]string(nil), numeric...),
		categorical: append([]string(nil), categorical...),
	}
}

// State reports the lifecycle state.
func (p *Preprocessor) State() State { return p.state }

// NumericColumns returns the median-imputed input columns.
func (p *Preprocessor) NumericColumns() []string { return append([]string(nil), p.numeric...) }

// CategoricalColumns returns the one-hot encoded input columns.
func (p *Preprocessor) CategoricalColumns() []string { return append([]string(nil), p.categorical...) }

// Fit learns the median of each numeric column and the mode and category
// vocabulary of each categorical column. Refitting replaces every statistic; a
// failed Fit leaves previous statistics untouched.
func (p *Preprocessor) Fit(t *table.Table) error {
	prev := p.state
	p.state = Fitting

	medians := make([]float64, len(p.numeric))
	for i, name := range p.numeric {
		values, err := numericValues(t, name)
		if err != nil {
			p.state = prev
			return err
		}
		medians[i] = median(values)
	}

	modes := make([]string, len(p.categorical))
	categories := make([][]string, len(p.categorical))
	for i, name := range p.categorical {
		col, ok := t.Column(name)
		if !ok {
			p.state = prev
			return &TransformError{Column: name, Message: "column missing from input"}
		}
		m, ok := mode(col)
		if !ok {
			p.state = prev
			return &TransformError{Column: name, Message: "no observed values to learn a mode from"}
		}
		modes[i] = m
		categories[i] = vocabulary(col, m)
	}

	p.medians = medians
	p.modes = modes
	p.categories = categories
	p.state = Fitted
	return nil
}

// Transform encodes t with the fitted statistics. The column count of the result
// equals Width() for every input. Unknown categories encode as all zeros.
// Calling Transform before Fit is a programming error and panics.
func (p *Preprocessor) Transform(t *table.Table) (*mat.Dense, error) {
	if p.state != Fitted {
		panic(fmt.Sprintf("features: Transform called on %s preprocessor", p.state))
	}
	if t.NumRows() == 0 {
		return nil, &TransformError{Message: "input has no rows"}
	}
	width := p.Width()
	if width == 0 {
		return nil, &TransformError{Message: "preprocessor produces no features"}
	}

	out := mat.NewDense(t.NumRows(), width, nil)
	offset := 0
	for i, name := range p.numeric {
		values, err := numericValues(t, name)
		if err != nil {
			return nil, err
		}
		for r, v := range values {
			if v == nil {
				out.Set(r, offset, p.medians[i])
			} else {
				out.Set(r, offset, *v)
			}
		}
		offset++
	}

	for i, name := range p.categorical {
		col, ok := t.Column(name)
		if !ok {
			return nil, &TransformError{Column: name, Message: "column missing from input"}
		}
		cats := p.categories[i]
		for r, v := range col.Values {
			key := p.modes[i]
			if !v.IsMissing() {
				key = v.StringForm()
			}
			if j := sort.SearchStrings(cats, key); j < len(cats) && cats[j] == key {
				out.Set(r, offset+j, 1)
			}
		}
		offset += len(cats)
	}
	return out, nil
}

// FitTransform fits on t and encodes it.
func (p *Preprocessor) FitTransform(t *table.Table) (*mat.Dense, error) {
	if err := p.Fit(t); err != nil {
		return nil, err
	}
	return p.Transform(t)
}

// Width returns the number of output columns. It is zero until fitted.
func (p *Preprocessor) Width() int {
	if p.state != Fitted {
		return 0
	}
	w := len(p.numeric)
	for _, cats := range p.categories {
		w += len(cats)
	}
	return w
}

// FeatureNames names every output column: numeric columns keep their name and
// indicator columns are named column_category.
func (p *Preprocessor) FeatureNames() []string {
	names := make([]string, 0, p.Width())
	names = append(names, p.numeric...)
	for i, name := range p.categorical {
		if p.state != Fitted {
			break
		}
		for _, c := range p.categories[i] {
			names = append(names, name+"_"+c)
		}
	}
	return names
}

// numericValues reads a numeric column, returning nil for missing cells. Text
// cells are accepted when they parse as numbers.
func numericValues(t *table.Table, name string) ([]*float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, &TransformError{Column: name, Message: "column missing from input"}
	}
	out := make([]*float64, col.Len())
	for r, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			s, _ := v.Text()
			var err error
			f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, &TransformError{Column: name, Message: fmt.Sprintf("could not convert %q to a number", s)}
			}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &TransformError{Column: name, Message: fmt.Sprintf("non-finite value %v at row %d", f, r)}
		}
		out[r] = &f
	}
	return out, nil
}

func median(values []*float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	if len(present) == 0 {
		return 0
	}
	sort.Float64s(present)
	mid := len(present) / 2
	if len(present)%2 == 1 {
		return present[mid]
	}
	return (present[mid-1] + present[mid]) / 2
}

// mode returns the most frequent non-missing value; ties go to the value seen first.
func mode(col table.Column) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		key := v.StringForm()
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}
	if len(order) == 0 {
		return "", false
	}
	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return best, true
}

// vocabulary lists the sorted distinct categories after imputation.
func vocabulary(col table.Column, fill string) []string {
	seen := map[string]bool{}
	for _, v := range col.Values {
		if v.IsMissing() {
			seen[fill] = true
		} else {
			seen[v.StringForm()] = true
		}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

type snapshot struct {
	NumericColumns     []string   `json:"numeric_columns"`
	CategoricalColumns []string   `json:"categorical_columns"`
	Medians            []float64  `json:"medians"`
	Modes              []string   `json:"modes"`
	Categories         [][]string `json:"categories"`
}

// MarshalJSON serializes the fitted statistics.
func (p *Preprocessor) MarshalJSON() ([]byte, error) {
	if p.state != Fitted {
		return nil, fmt.Errorf("cannot serialize %s preprocessor", p.state)
	}
	return json.Marshal(snapshot{
		NumericColumns:     p.numeric,
		CategoricalColumns: p.categorical,
		Medians:            p.medians,
		Modes:              p.modes,
		Categories:         p.categories,
	})
}

// UnmarshalJSON restores a fitted preprocessor.
func (p *Preprocessor) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s.Medians) != len(s.NumericColumns) {
		return fmt.Errorf("preprocessor has %d medians for %d numeric columns", len(s.Medians), len(s.NumericColumns))
	}
	if len(s.Modes) != len(s.CategoricalColumns) || len(s.Categories) != len(s.CategoricalColumns) {
		return fmt.Errorf("preprocessor statistics do not cover %d categorical columns", len(s.CategoricalColumns))
	}
	for i, cats := range s.Categories {
		if !sort.StringsAreSorted(cats) {
			return fmt.Errorf("categories of %q are not sorted", s.CategoricalColumns[i])
		}
	}

	*p = Preprocessor{
		numeric:     s.NumericColumns,
		categorical: s.CategoricalColumns,
		state:       Fitted,
		medians:     s.Medians,
		modes:       s.Modes,
		categories:  s.Categories,
	}
	return nil
}
