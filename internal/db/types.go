package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a tracked training run
type Run struct {
	ID          uuid.UUID          `json:"id"`
	Experiment  string             `json:"experiment"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Params      map[string]string  `json:"params"`
	Metrics     map[string]float64 `json:"metrics"`
	Artifacts   map[string]string  `json:"artifacts"`
}

// Run status values
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// ValidStatus reports whether status is one of the run status values.
func ValidStatus(status string) bool {
	switch status {
	case StatusRunning, StatusFinished, StatusFailed:
		return true
	}
	return false
}
