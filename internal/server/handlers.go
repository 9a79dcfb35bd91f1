package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/churnforge/internal/schemas"
	"github.com/jonathan/churnforge/internal/table"
	embedded "github.com/jonathan/churnforge/schemas"
)

const maxBodyBytes = 1 << 20

// HealthResponse represents the response for /health
type HealthResponse struct {
	Status       string `json:"status"`
	ModelPresent bool   `json:"model_present"`
}

// PredictResponse represents the response for /predict
type PredictResponse struct {
	ChurnPred  int      `json:"churn_pred"`
	ChurnProba *float64 `json:"churn_proba"`
}

// ReloadResponse represents the response for /reload
type ReloadResponse struct {
	Status    string `json:"status"`
	RunID     string `json:"run_id"`
	ModelType string `json:"model_type"`
}

// handleHealth always answers 200 and reports whether a model file exists
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, HealthResponse{Status: "ok", ModelPresent: s.models.Present()})
}

// handlePredict scores a single JSON row
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	row, err := DecodeRow(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	a, err := s.models.Get()
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	preds, proba, err := a.Pipeline.Predict(row)
	if err != nil {
		s.errorResponse(w, r, &ErrPrediction{Cause: err})
		return
	}

	resp := PredictResponse{ChurnPred: preds[0]}
	if proba != nil {
		p := proba[0]
		resp.ChurnProba = &p
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleReload swaps in the artifact currently on disk
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	a, err := s.models.Reload()
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.logger.Info("model reloaded", "run_id", a.RunID, "model_type", a.ModelType())
	s.jsonResponse(w, http.StatusOK, ReloadResponse{
		Status:    "reloaded",
		RunID:     a.RunID,
		ModelType: string(a.ModelType()),
	})
}

// DecodeRow turns a JSON object body into a one-row table. Failures are
// *ErrBadPayload or *table.ParseError.
func DecodeRow(body io.Reader) (*table.Table, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, &ErrBadPayload{Message: "could not read body", Cause: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ErrBadPayload{Message: "body is empty"}
	}

	if err := schemas.ValidateDocument(embedded.PredictRequest, raw); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, &ErrBadPayload{Message: ve.Summary()}
		}
		return nil, &ErrBadPayload{Message: "body is not valid JSON", Cause: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, &ErrBadPayload{Message: "body must be a JSON object", Cause: err}
	}
	if len(record) == 0 {
		return nil, &ErrBadPayload{Message: "body has no fields"}
	}
	return table.FromRecord(record)
}
