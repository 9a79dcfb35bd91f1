// Package schemas embeds the JSON Schema documents for the contract, the
// validation report and the predict request payload.
package schemas

import "embed"

// Schema file names.
const (
	Contract         = "contract.schema.json"
	ValidationReport = "validation_report.schema.json"
	PredictRequest   = "predict_request.schema.json"
)

//go:embed *.schema.json
var FS embed.FS
