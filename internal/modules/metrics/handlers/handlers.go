// Package handlers provides HTTP handlers for metric summaries.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// Handler handles metrics HTTP requests
type Handler struct {
	maxBatch int
	log      zerolog.Logger
}

// NewHandler creates a new metrics handler
func NewHandler(maxBatch int, log zerolog.Logger) *Handler {
	return &Handler{
		maxBatch: maxBatch,
		log:      log.With().Str("handler", "metrics").Logger(),
	}
}

// SummaryRequest is the body of POST /api/metrics/summary. When Range is
// omitted the summary covers the Months (default 1) ending at Now.
type SummaryRequest struct {
	Transactions []domain.Transaction `json:"transactions"`
	Metric       metrics.Kind         `json:"metric,omitempty"` // empty = all kinds
	Range        *domain.TimeRange    `json:"range,omitempty"`
	Months       int                  `json:"months,omitempty"`
	Now          string               `json:"now,omitempty"` // RFC 3339, defaults to server time
}

// SummaryResponse maps metric kind to its computed value
type SummaryResponse struct {
	Range   domain.TimeRange                     `json:"range"`
	Metrics map[metrics.Kind]metrics.MetricValue `json:"metrics"`
}

// HandleSummary handles POST /api/metrics/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	var request SummaryRequest

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
	if request.Metric != "" && !request.Metric.Valid() {
		h.writeError(w, http.StatusBadRequest, "Unknown metric: "+string(request.Metric))
		return
	}

	now, err := parseNow(request.Now)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid now timestamp: "+err.Error())
		return
	}

	rng := resolveRange(request, now)
	if !rng.Valid() {
		h.writeError(w, http.StatusBadRequest, "Range start must not be after end")
		return
	}

	kinds := []metrics.Kind{metrics.KindIncome, metrics.KindExpenses, metrics.KindNet, metrics.KindCount}
	if request.Metric != "" {
		kinds = []metrics.Kind{request.Metric}
	}

	startTime := time.Now()
	response := SummaryResponse{
		Range:   rng,
		Metrics: make(map[metrics.Kind]metrics.MetricValue, len(kinds)),
	}
	for _, kind := range kinds {
		response.Metrics[kind] = metrics.Summary(request.Transactions, kind, rng)
	}
	elapsed := time.Since(startTime)

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Int("metrics", len(kinds)).
		Dur("elapsed", elapsed).
		Msg("Summary computed")

	h.writeJSON(w, http.StatusOK, response)
}

func resolveRange(request SummaryRequest, now time.Time) domain.TimeRange {
	if request.Range != nil {
		return *request.Range
	}
	months := request.Months
	if months < 1 {
		months = 1
	}
	return metrics.MonthRange(now, months)
}

func parseNow(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
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
