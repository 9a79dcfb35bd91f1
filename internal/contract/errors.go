package contract

import (
	"errors"
	"fmt"
)

// ErrContractMissing is the configuration error raised when validation is
// requested but no contract document exists.
var ErrContractMissing = errors.New("contract missing")

// LoadError represents a contract document that could not be loaded.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	where := "contract"
	if e.Path != "" {
		where = fmt.Sprintf("contract at %s", e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
