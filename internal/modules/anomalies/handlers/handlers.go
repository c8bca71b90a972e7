// Package handlers provides HTTP handlers for anomaly detection.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/anomalies"
)

// Handler handles anomaly detection HTTP requests
type Handler struct {
	baseCfg  anomalies.DetectorConfig
	maxBatch int
	log      zerolog.Logger
}

// NewHandler creates a new anomalies handler
func NewHandler(cfg anomalies.DetectorConfig, maxBatch int, log zerolog.Logger) *Handler {
	return &Handler{
		baseCfg:  cfg,
		maxBatch: maxBatch,
		log:      log.With().Str("handler", "anomalies").Logger(),
	}
}

// DetectRequest is the body of POST /api/anomalies/detect. The optional
// tuning fields override the server defaults when positive.
type DetectRequest struct {
	Transactions       []domain.Transaction `json:"transactions"`
	LookbackMonths     int                  `json:"lookback_months,omitempty"`
	RecentWindowMonths int                  `json:"recent_window_months,omitempty"`
	Now                string               `json:"now,omitempty"` // RFC 3339, defaults to server time
}

// DetectResponse carries the scored anomalies and the baselines they were
// scored against.
type DetectResponse struct {
	Anomalies []anomalies.Anomaly           `json:"anomalies"`
	Baselines map[string]anomalies.Baseline `json:"baselines"`
}

// HandleDetect handles POST /api/anomalies/detect
func (h *Handler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	var request DetectRequest

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

	now := time.Now()
	if request.Now != "" {
		parsed, err := time.Parse(time.RFC3339, request.Now)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid now timestamp: "+err.Error())
			return
		}
		now = parsed
	}

	cfg := h.baseCfg
	if request.LookbackMonths > 0 {
		cfg.LookbackMonths = request.LookbackMonths
	}
	if request.RecentWindowMonths > 0 {
		cfg.RecentWindowMonths = request.RecentWindowMonths
	}
	if cfg.RecentWindowMonths >= cfg.LookbackMonths {
		h.writeError(w, http.StatusBadRequest, "Recent window must be shorter than the lookback")
		return
	}

	detector := anomalies.NewDetector(cfg, h.log)

	startTime := time.Now()
	found := detector.Detect(request.Transactions, now)
	baselines := detector.Baselines(request.Transactions, now)
	elapsed := time.Since(startTime)

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Int("anomalies", len(found)).
		Int("baselines", len(baselines)).
		Dur("elapsed", elapsed).
		Msg("Anomaly detection completed")

	h.writeJSON(w, http.StatusOK, DetectResponse{
		Anomalies: found,
		Baselines: baselines,
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
