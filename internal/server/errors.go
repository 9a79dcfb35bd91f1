package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/churnforge/internal/features"
	"github.com/jonathan/churnforge/internal/table"
)

// ErrModelUnavailable indicates the model artifact could not be loaded
type ErrModelUnavailable struct {
	Path  string
	Cause error
}

func (e *ErrModelUnavailable) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Cause)
}

func (e *ErrModelUnavailable) Unwrap() error { return e.Cause }

// ErrBadPayload indicates the request body is not a single JSON object of scalars
type ErrBadPayload struct {
	Message string
	Cause   error
}

func (e *ErrBadPayload) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid payload: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid payload: %s", e.Message)
}

func (e *ErrBadPayload) Unwrap() error { return e.Cause }

// ErrPrediction indicates the model rejected a well-formed payload
type ErrPrediction struct {
	Cause error
}

func (e *ErrPrediction) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Cause)
}

func (e *ErrPrediction) Unwrap() error { return e.Cause }

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		unavailable *ErrModelUnavailable
		badPayload  *ErrBadPayload
		prediction  *ErrPrediction
		transform   *features.TransformError
		parse       *table.ParseError
	)
	switch {
	case errors.As(err, &unavailable),
		errors.As(err, &badPayload),
		errors.As(err, &prediction),
		errors.As(err, &transform),
		errors.As(err, &parse):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
