package contract

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/churnforge/internal/table"
)

// Report is the outcome of one validation call.
type Report struct {
	Success     bool     `json:"success"`
	Errors      []string `json:"errors"`
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
	Columns     []string `json:"columns"`
}

// Validate checks t against c. Every check runs regardless of earlier failures,
// and the result depends only on the two inputs.
func Validate(t *table.Table, c Contract) Report {
	errs := []string{}

	if t.NumCols() < c.MinColumns {
		errs = append(errs, fmt.Sprintf("Expected at least %d columns, got %d.", c.MinColumns, t.NumCols()))
	}

	for _, name := range sortedUnique(c.RequiredColumns) {
		if !t.Has(name) {
			errs = append(errs, fmt.Sprintf("Missing required column: %s", name))
		}
	}

	if col, ok := t.Column(c.TargetColumn); ok {
		if col.HasMissing() {
			errs = append(errs, fmt.Sprintf("Target column '%s' contains nulls.", c.TargetColumn))
		}
		if bad := unexpectedValues(col, c.AllowedTargetValues); len(bad) > 0 {
			errs = append(errs, fmt.Sprintf("Target column '%s' has unexpected values: %s. Allowed: %s",
				c.TargetColumn, renderValues(bad), renderInts(c.AllowedTargetValues)))
		}
	}

	return Report{
		Success:     len(errs) == 0,
		Errors:      errs,
		RowCount:    t.NumRows(),
		ColumnCount: t.NumCols(),
		Columns:     t.Columns(),
	}
}

// unexpectedValues returns the distinct non-missing values outside allowed,
// sorted with numbers first (ascending) and strings after (lexicographic).
func unexpectedValues(col table.Column, allowed []int) []table.Value {
	allowedSet := make(map[int]bool, len(allowed))
	for _, v := range allowed {
		allowedSet[v] = true
	}

	seen := make(map[string]bool)
	var bad []table.Value
	for _, v := range col.Values {
		if v.IsMissing() || seen[v.StringForm()] {
			continue
		}
		seen[v.StringForm()] = true
		if f, ok := v.Float(); ok && f == math.Trunc(f) && allowedSet[int(f)] {
			continue
		}
		bad = append(bad, v)
	}

	sort.Slice(bad, func(i, j int) bool {
		fi, iNum := bad[i].Float()
		fj, jNum := bad[j].Float()
		switch {
		case iNum && jNum:
			return fi < fj
		case iNum != jNum:
			return iNum
		default:
			return bad[i].StringForm() < bad[j].StringForm()
		}
	})
	return bad
}

func renderValues(values []table.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if _, ok := v.Text(); ok {
			parts[i] = "'" + v.StringForm() + "'"
		} else {
			parts[i] = v.StringForm()
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func renderInts(values []int) string {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for i, v := range sorted {
		if i > 0 && sorted[i-1] == v {
			continue
		}
		parts = append(parts, strconv.Itoa(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func sortedUnique(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	uniq := out[:0]
	for i, n := range out {
		if i == 0 || n != out[i-1] {
			uniq = append(uniq, n)
		}
	}
	return uniq
}
