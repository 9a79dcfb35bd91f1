// Package contract implements the declarative data contract that a table must
// satisfy before training proceeds.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/churnforge/internal/schemas"
	embedded "github.com/jonathan/churnforge/schemas"
)

// DefaultTargetColumn is the label column used when a contract omits one.
const DefaultTargetColumn = "Churn"

// Contract is the persisted data contract document.
type Contract struct {
	TargetColumn        string   `json:"target_column" validate:"required"`
	MinColumns          int      `json:"min_columns" validate:"min=1"`
	AllowedTargetValues []int    `json:"allowed_target_values"`
	RequiredColumns     []string `json:"required_columns" validate:"dive,required"`
}

// document mirrors Contract with optional fields so absent keys can take defaults.
type document struct {
	TargetColumn        *string  `json:"target_column"`
	MinColumns          *int     `json:"min_columns"`
	AllowedTargetValues []int    `json:"allowed_target_values"`
	RequiredColumns     []string `json:"required_columns"`
}

// Default returns the contract written by Init.
func Default() Contract {
	return Contract{
		TargetColumn:        DefaultTargetColumn,
		MinColumns:          5,
		AllowedTargetValues: []int{0, 1},
		RequiredColumns:     []string{DefaultTargetColumn},
	}
}

// Init writes the default contract to path, creating parent directories.
func Init(path string) (Contract, error) {
	c := Default()
	if err := Write(path, c); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// Write persists a contract as indented JSON.
func Write(path string, c Contract) error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid contract: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create contract directory: %w", err)
		}
	}

	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal contract: %w", err)
	}
	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write contract: %w", err)
	}
	return nil
}

// Load reads the contract document. A missing document yields an error that
// matches ErrContractMissing; it is never reported as a validation failure.
func Load(path string) (Contract, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Contract{}, &LoadError{Path: path, Message: "run `churnforge contract-init` first", Cause: ErrContractMissing}
		}
		return Contract{}, &LoadError{Path: path, Message: "failed to read contract", Cause: err}
	}
	return Parse(content)
}

// Parse decodes a contract document, applying defaults for absent fields.
func Parse(content []byte) (Contract, error) {
	if err := schemas.ValidateDocument(embedded.Contract, content); err != nil {
		return Contract{}, &LoadError{Message: "contract does not match schema", Cause: err}
	}

	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return Contract{}, &LoadError{Message: "failed to parse contract JSON", Cause: err}
	}

	c := Contract{
		TargetColumn:        DefaultTargetColumn,
		MinColumns:          1,
		AllowedTargetValues: []int{0, 1},
		RequiredColumns:     []string{},
	}
	if doc.TargetColumn != nil {
		c.TargetColumn = *doc.TargetColumn
	}
	if doc.MinColumns != nil {
		c.MinColumns = *doc.MinColumns
	}
	if doc.AllowedTargetValues != nil {
		c.AllowedTargetValues = doc.AllowedTargetValues
	}
	if doc.RequiredColumns != nil {
		c.RequiredColumns = doc.RequiredColumns
	}

	if err := validator.New().Struct(c); err != nil {
		return Contract{}, &LoadError{Message: "invalid contract", Cause: err}
	}
	return c, nil
}
