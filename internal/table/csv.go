package table

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// naTokens are the cell contents read as missing values.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// ReadCSV loads a CSV file with a header row.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &DatasetNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	return ParseCSV(f)
}

// ParseCSV reads a header row followed by data rows. A column whose every
// non-missing cell parses as a float becomes numeric; any other column keeps
// its cells as strings.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Message: "failed to read CSV", Cause: err}
	}
	if len(records) == 0 {
		return nil, &ParseError{Message: "CSV has no header row"}
	}

	header := records[0]
	rows := records[1:]
	cols := make([]Column, len(header))
	for j, name := range header {
		raw := make([]string, len(rows))
		for i, rec := range rows {
			raw[i] = rec[j]
		}
		cols[j] = parseColumn(name, raw)
	}
	return New(cols...)
}

func parseColumn(name string, raw []string) Column {
	numeric := true
	for _, s := range raw {
		if naTokens[s] {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			numeric = false
			break
		}
	}

	values := make([]Value, len(raw))
	for i, s := range raw {
		switch {
		case naTokens[s]:
			values[i] = Missing()
		case numeric:
			f, _ := strconv.ParseFloat(s, 64)
			values[i] = Number(f)
		default:
			values[i] = String(s)
		}
	}
	return Column{Name: name, Values: values}
}

// FromRecord builds a one-row table from a decoded JSON object. Columns are
// ordered by name; downstream consumers select columns by name.
func FromRecord(record map[string]any) (*Table, error) {
	names := make([]string, 0, len(record))
	for k := range record {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]Column, len(names))
	for i, name := range names {
		v, err := valueOf(record[name])
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("field %q", name), Cause: err}
		}
		cols[i] = Column{Name: name, Values: []Value{v}}
	}
	return New(cols...)
}

func valueOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Missing(), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case float64:
		return Number(v), nil
	case int:
		return Number(float64(v)), nil
	case string:
		return String(v), nil
	case bool:
		if v {
			return String("True"), nil
		}
		return String("False"), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
