package training

import (
	"fmt"
	"strings"

	"github.com/jonathan/churnforge/internal/contract"
)

// GateError means the dataset failed its data contract and training stopped
// before fitting.
type GateError struct {
	Report contract.Report
}

func (e *GateError) Error() string {
	return fmt.Sprintf("data contract validation failed: %s", strings.Join(e.Report.Errors, "; "))
}
