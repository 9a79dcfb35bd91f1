// Package target canonicalizes the label column into a strict 0/1 encoding and
// splits a table into features and labels.
package target

import (
	"strings"

	"github.com/jonathan/churnforge/internal/table"
)

// DefaultColumn is the label column of the churn dataset.
const DefaultColumn = "Churn"

// maxReported caps the distinct offending values carried by a NormalizationError.
const maxReported = 10

// label is the outcome of matching one cell against the known encodings.
type label int

const (
	unmapped label = iota
	negative
	positive
)

// match compares by string form, so numeric 1 and text "1" both map to positive.
func match(v table.Value) label {
	if v.IsMissing() {
		return unmapped
	}
	switch v.StringForm() {
	case "Yes", "True", "1":
		return positive
	case "No", "False", "0":
		return negative
	default:
		return unmapped
	}
}

// Normalize trims column names and string cells, then maps the target column to
// integers 0/1. When the target column is absent the input table is returned
// unchanged. Any cell that does not map fails the whole call.
func Normalize(t *table.Table, targetColumn string) (*table.Table, error) {
	present := false
	for _, name := range t.Columns() {
		if strings.TrimSpace(name) == targetColumn {
			present = true
			break
		}
	}
	if !present {
		return t, nil
	}

	out, err := trimTable(t)
	if err != nil {
		return nil, err
	}

	col, _ := out.Column(targetColumn)
	mapped := make([]table.Value, col.Len())
	var offending []string
	seen := make(map[string]bool)
	for i, v := range col.Values {
		switch match(v) {
		case positive:
			mapped[i] = table.Number(1)
		case negative:
			mapped[i] = table.Number(0)
		default:
			key := v.StringForm()
			if !seen[key] {
				seen[key] = true
				if len(offending) < maxReported {
					offending = append(offending, key)
				}
			}
		}
	}
	if len(offending) > 0 {
		return nil, &NormalizationError{Column: targetColumn, Offending: offending}
	}

	return out.Replace(table.Column{Name: targetColumn, Values: mapped})
}

func trimTable(t *table.Table) (*table.Table, error) {
	renamed, err := t.Rename(strings.TrimSpace)
	if err != nil {
		return nil, err
	}

	out := renamed
	for i := range renamed.NumCols() {
		col := renamed.ColumnAt(i)
		if col.DType() != table.Object {
			continue
		}
		values := make([]table.Value, col.Len())
		for j, v := range col.Values {
			if s, ok := v.Text(); ok {
				values[j] = table.String(strings.TrimSpace(s))
			} else {
				values[j] = v
			}
		}
		if out, err = out.Replace(table.Column{Name: col.Name, Values: values}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Labels reads a normalized target column as integers.
func Labels(t *table.Table, targetColumn string) ([]int, error) {
	col, ok := t.Column(targetColumn)
	if !ok {
		return nil, &MissingTargetError{Column: targetColumn}
	}
	out := make([]int, col.Len())
	for i, v := range col.Values {
		f, isNum := v.Float()
		if !isNum || (f != 0 && f != 1) {
			return nil, &NormalizationError{Column: targetColumn, Offending: []string{v.StringForm()}}
		}
		out[i] = int(f)
	}
	return out, nil
}
