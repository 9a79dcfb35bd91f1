package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/churnforge/internal/schemas"
	embedded "github.com/jonathan/churnforge/schemas"
)

// WriteReport persists a report, replacing any previous report at path.
func WriteReport(path string, r Report) error {
	jsonBytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal validation report: %w", err)
	}
	if err := schemas.ValidateDocument(embedded.ValidationReport, jsonBytes); err != nil {
		return fmt.Errorf("validation report does not match schema: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	return nil
}

// ReadReport loads a previously written report.
func ReadReport(path string) (Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read validation report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(content, &r); err != nil {
		return Report{}, fmt.Errorf("failed to parse validation report: %w", err)
	}
	return r, nil
}
