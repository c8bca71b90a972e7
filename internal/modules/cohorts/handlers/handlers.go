// Package handlers provides HTTP handlers for cohort and rolling-window
// analysis.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/cohorts"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// Handler handles cohort HTTP requests
type Handler struct {
	service  *cohorts.Service
	maxBatch int
	log      zerolog.Logger
}

// NewHandler creates a new cohorts handler
func NewHandler(service *cohorts.Service, maxBatch int, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		maxBatch: maxBatch,
		log:      log.With().Str("handler", "cohorts").Logger(),
	}
}

// AnalyzeRequest is the body of POST /api/cohorts
type AnalyzeRequest struct {
	Transactions []domain.Transaction `json:"transactions"`
	Key          cohorts.Key          `json:"key"`
	Measure      cohorts.Measure      `json:"measure"`
	Periods      int                  `json:"periods,omitempty"` // defaults to 12
}

// RollingRequest is the body of POST /api/cohorts/rolling
type RollingRequest struct {
	Transactions []domain.Transaction `json:"transactions"`
	Metric       metrics.Kind         `json:"metric,omitempty"` // defaults to net
	Size         int                  `json:"size"`
	Unit         cohorts.Unit         `json:"unit"`
	Count        int                  `json:"count"`
	Now          string               `json:"now,omitempty"` // RFC 3339, defaults to server time
}

// HandleAnalyze handles POST /api/cohorts
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
	if request.Periods == 0 {
		request.Periods = 12
	}

	startTime := time.Now()
	rows, err := h.service.Analyze(r.Context(), request.Transactions, request.Key, request.Measure, request.Periods)
	elapsed := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.writeError(w, http.StatusRequestTimeout, "Cohort analysis cancelled: "+err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, "Cohort analysis failed: "+err.Error())
		return
	}

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Int("cohorts", len(rows)).
		Str("key", string(request.Key)).
		Str("measure", string(request.Measure)).
		Dur("elapsed", elapsed).
		Msg("Cohort analysis completed")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cohorts": rows,
		"periods": request.Periods,
	})
}

// HandleRolling handles POST /api/cohorts/rolling
func (h *Handler) HandleRolling(w http.ResponseWriter, r *http.Request) {
	var request RollingRequest

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
	if request.Metric == "" {
		request.Metric = metrics.KindNet
	}
	if !request.Metric.Valid() {
		h.writeError(w, http.StatusBadRequest, "Unknown metric: "+string(request.Metric))
		return
	}

	now := time.Now()
	if request.Now != "" {
		parsed, err := time.Parse(time.RFC3339, request.Now)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid now timestamp: "+err.Error())
			return
		}
		now = parsed
	}

	startTime := time.Now()
	points, err := cohorts.RollingWindows(request.Transactions, request.Metric, request.Size, request.Unit, request.Count, now)
	elapsed := time.Since(startTime)

	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Rolling window analysis failed: "+err.Error())
		return
	}

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Int("windows", len(points)).
		Dur("elapsed", elapsed).
		Msg("Rolling window analysis completed")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"windows": points,
	})
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
