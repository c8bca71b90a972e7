// Package handlers provides HTTP handlers for correlation analysis.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/correlation"
)

// Handler handles correlation HTTP requests
type Handler struct {
	service  *correlation.Service
	maxBatch int
	log      zerolog.Logger
}

// NewHandler creates a new correlation handler
func NewHandler(service *correlation.Service, maxBatch int, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		maxBatch: maxBatch,
		log:      log.With().Str("handler", "correlation").Logger(),
	}
}

// AnalyzeRequest is the body of POST /api/correlations
type AnalyzeRequest struct {
	Transactions []domain.Transaction `json:"transactions"`
	Metrics      []string             `json:"metrics,omitempty"` // defaults to income/expenses/savings
}

// AnalyzeResponse wraps the pairwise results
type AnalyzeResponse struct {
	Correlations []correlation.Result `json:"correlations"`
}

// HandleAnalyze handles POST /api/correlations
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var request AnalyzeRequest

	// Parse request body
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Validate request
	if len(request.Transactions) == 0 {
		h.writeError(w, http.StatusBadRequest, "No transactions provided")
		return
	}
	if len(request.Transactions) > h.maxBatch {
		h.writeError(w, http.StatusBadRequest, "Too many transactions")
		return
	}

	startTime := time.Now()
	results, err := h.service.Analyze(request.Transactions, request.Metrics)
	elapsed := time.Since(startTime)

	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Correlation analysis failed: "+err.Error())
		return
	}

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Int("pairs", len(results)).
		Dur("elapsed", elapsed).
		Msg("Correlation analysis completed")

	h.writeJSON(w, http.StatusOK, AnalyzeResponse{Correlations: results})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
