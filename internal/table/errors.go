package table

import "fmt"

// ShapeError reports a column whose length differs from the rest of the table.
type ShapeError struct {
	Column string
	Want   int
	Got    int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("column %q has %d rows, expected %d", e.Column, e.Got, e.Want)
}

// DatasetNotFoundError reports a missing dataset file.
type DatasetNotFoundError struct {
	Path string
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("missing dataset at: %s", e.Path)
}

// ParseError represents a malformed CSV file or record payload.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
