package features

import "fmt"

// TransformError reports input that the preprocessor cannot encode.
type TransformError struct {
	Column  string
	Message string
}

func (e *TransformError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("transform error: column %q: %s", e.Column, e.Message)
	}
	return fmt.Sprintf("transform error: %s", e.Message)
}
