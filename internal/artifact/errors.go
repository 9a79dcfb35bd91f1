package artifact

import "fmt"

// NotFoundError means no artifact exists at Path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model artifact not found at %s (run `churnforge train` first)", e.Path)
}

// IntegrityError means the artifact exists but cannot be trusted or decoded.
type IntegrityError struct {
	Path    string
	Message string
	Cause   error
}

func (e *IntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("artifact %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("artifact %s: %s", e.Path, e.Message)
}

func (e *IntegrityError) Unwrap() error {
	return e.Cause
}
