// Package features partitions feature columns by type and builds the
// preprocessing step that turns raw tables into fixed-width numeric matrices.
package features

import "github.com/jonathan/churnforge/internal/table"

// InferTypes splits the columns of t into numeric and categorical lists. A column
// is numeric iff its runtime dtype is numeric; every other column is
// categorical. Both lists keep the column order of t.
func InferTypes(t *table.Table) (numeric, categorical []string) {
	numeric = []string{}
	categorical = []string{}
	for i := range t.NumCols() {
		col := t.ColumnAt(i)
		if col.DType() == table.Numeric {
			numeric = append(numeric, col.Name)
		} else {
			categorical = append(categorical, col.Name)
		}
	}
	return numeric, categorical
}

// Bundle couples the preprocessor with the column partition it was built from.
type Bundle struct {
	Preprocessor       *Preprocessor
	NumericColumns     []string
	CategoricalColumns []string
}

// Build infers column types from t and returns an unfit preprocessor for them.
func Build(t *table.Table) *Bundle {
	numeric, categorical := InferTypes(t)
	return &Bundle{
		Preprocessor:       NewPreprocessor(numeric, categorical),
		NumericColumns:     numeric,
		CategoricalColumns: categorical,
	}
}
