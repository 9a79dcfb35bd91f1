package target

import (
	"fmt"
	"strings"
)

// NormalizationError reports target values that cannot be mapped to 0/1.
// Offending holds up to the first ten distinct values, in order of appearance.
type NormalizationError struct {
	Column    string
	Offending []string
}

func (e *NormalizationError) Error() string {
	quoted := make([]string, len(e.Offending))
	for i, v := range e.Offending {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("%s could not be normalized to numeric 0/1. Unique values: [%s]",
		e.Column, strings.Join(quoted, ", "))
}

// MissingTargetError reports a table without the target column.
type MissingTargetError struct {
	Column string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("target column '%s' not found", e.Column)
}

// NoFeaturesError reports a table with nothing left to train on once the target
// and identifier columns are removed.
type NoFeaturesError struct {
	Target string
	Rows   int
}

func (e *NoFeaturesError) Error() string {
	return fmt.Sprintf("no feature columns left after dropping target '%s' and ID columns (%d rows)", e.Target, e.Rows)
}
