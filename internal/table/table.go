// Package table provides the in-memory tabular representation consumed by the
// contract validator, the target normalizer and the feature pipeline.
package table

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the runtime type of a single cell.
type Kind int

const (
	// KindMissing marks an absent value (NA, null, empty cell).
	KindMissing Kind = iota
	// KindNumber marks a numeric value.
	KindNumber
	// KindString marks a textual value.
	KindString
)

// Value is a single table cell.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Missing returns the missing-value marker.
func Missing() Value { return Value{kind: KindMissing} }

// Number returns a numeric cell. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{kind: KindNumber, num: f}
}

// String returns a textual cell.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Kind reports the runtime type of the cell.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the cell is the missing marker.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric content and whether the cell is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Text returns the raw string content and whether the cell is a string.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// StringForm renders the cell the way it is compared against lookup tables
// and category vocabularies. Integral numbers render without a fractional part,
// so 1.0 and 1 both render as "1".
func (v Value) StringForm() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	default:
		return "NaN"
	}
}

// GoString implements fmt.GoStringer for readable test failures.
func (v Value) GoString() string {
	switch v.kind {
	case KindNumber:
		return "Number(" + v.StringForm() + ")"
	case KindString:
		return strconv.Quote(v.str)
	default:
		return "Missing()"
	}
}

// DType is the logical type of a whole column.
type DType int

const (
	// Numeric columns hold only numbers (and missing markers).
	Numeric DType = iota
	// Object columns hold at least one non-numeric value.
	Object
)

func (d DType) String() string {
	if d == Numeric {
		return "numeric"
	}
	return "object"
}

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// DType reports Numeric when every non-missing cell is a number. A column with
// no non-missing cells is Numeric.
func (c Column) DType() DType {
	for _, v := range c.Values {
		if v.kind == KindString {
			return Object
		}
	}
	return Numeric
}

// Len returns the number of rows in the column.
func (c Column) Len() int { return len(c.Values) }

// HasMissing reports whether any cell is missing.
func (c Column) HasMissing() bool {
	for _, v := range c.Values {
		if v.IsMissing() {
			return true
		}
	}
	return false
}

// NumberColumn builds a numeric column from plain floats.
func NumberColumn(name string, values ...float64) Column {
	out := make([]Value, len(values))
	for i, f := range values {
		out[i] = Number(f)
	}
	return Column{Name: name, Values: out}
}

// StringColumn builds a textual column from plain strings.
func StringColumn(name string, values ...string) Column {
	out := make([]Value, len(values))
	for i, s := range values {
		out[i] = String(s)
	}
	return Column{Name: name, Values: out}
}

// Table is an ordered collection of equally long columns. Tables are treated as
// immutable: every transforming method returns a new Table. Drop and Take keep
// the row count even when no columns remain.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New builds a table from columns. All columns must share the same length and
// column names must be unique.
func New(cols ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, &ShapeError{Column: c.Name, Want: t.rows, Got: c.Len()}
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name: %q", c.Name)
		}
		t.index[c.Name] = i
		t.columns[i] = Column{Name: c.Name, Values: append([]Value(nil), c.Values...)}
	}
	return t, nil
}

// MustNew is New for statically known tables; it panics on error.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) Column { return t.columns[i] }

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	kept := make([]Column, 0, len(t.columns))
	for _, c := range t.columns {
		if !skip[c.Name] {
			kept = append(kept, c)
		}
	}
	out := MustNew(kept...)
	out.rows = t.rows
	return out
}

// Take returns a table holding the given rows, in the given order.
func (t *Table) Take(rows []int) *Table {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		vals := make([]Value, len(rows))
		for j, r := range rows {
			vals[j] = c.Values[r]
		}
		cols[i] = Column{Name: c.Name, Values: vals}
	}
	out := MustNew(cols...)
	out.rows = len(rows)
	return out
}

// Replace returns a table where the column with the same name is swapped for c.
func (t *Table) Replace(c Column) (*Table, error) {
	i, ok := t.index[c.Name]
	if !ok {
		return nil, fmt.Errorf("column not found: %q", c.Name)
	}
	cols := append([]Column(nil), t.columns...)
	cols[i] = c
	return New(cols...)
}

// Rename returns a table whose column names are mapped through fn.
func (t *Table) Rename(fn func(string) string) (*Table, error) {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = Column{Name: fn(c.Name), Values: c.Values}
	}
	return New(cols...)
}
