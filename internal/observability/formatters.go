// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/churnforge/internal/contract"
	"github.com/jonathan/churnforge/internal/training"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintReport outputs a validation report summary.
func (p *Printer) PrintReport(r *contract.Report) {
	if r == nil {
		return
	}

	var sb strings.Builder
	status := "PASSED"
	if !r.Success {
		status = "FAILED"
	}
	sb.WriteString(fmt.Sprintf("Status:   %s\n", status))
	sb.WriteString(fmt.Sprintf("Rows:     %d\n", r.RowCount))
	sb.WriteString(fmt.Sprintf("Columns:  %d\n", r.ColumnCount))

	if len(r.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("  • %s\n", e))
		}
	}

	p.printBox("DATA CONTRACT VALIDATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTrainingResult outputs the metrics and feature layout of a finished run.
func (p *Printer) PrintTrainingResult(r *training.Result) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Model:      %s\n", r.ModelType))
	sb.WriteString(fmt.Sprintf("Rows:       %d train / %d test\n", r.TrainRows, r.TestRows))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Accuracy:   %.4f\n", r.Metrics.Accuracy))
	sb.WriteString(fmt.Sprintf("Precision:  %.4f\n", r.Metrics.Precision))
	sb.WriteString(fmt.Sprintf("Recall:     %.4f\n", r.Metrics.Recall))
	sb.WriteString(fmt.Sprintf("F1:         %.4f\n", r.Metrics.F1))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Numeric (%d): %s\n", len(r.NumericColumns), summarize(r.NumericColumns)))
	sb.WriteString(fmt.Sprintf("Categorical (%d): %s\n", len(r.CategoricalColumns), summarize(r.CategoricalColumns)))
	sb.WriteString(fmt.Sprintf("\nSaved to %s", r.ModelPath))

	p.printBox("TRAINING RESULT", sb.String())
}

// PrintProgress outputs one training stage line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event training.ProgressEvent) {
	fmt.Fprintf(p.out, "[%s] %s\n", event.Stage, event.Message)
}

// summarize lists the first few names and counts the rest.
func summarize(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	if len(names) <= maxItemsToShow {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s ... and %d more", strings.Join(names[:maxItemsToShow], ", "), len(names)-maxItemsToShow)
}
