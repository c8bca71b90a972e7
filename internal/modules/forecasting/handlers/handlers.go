// Package handlers provides HTTP handlers for trend, seasonality and
// forecast computation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/forecasting"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// Handler handles forecasting HTTP requests
type Handler struct {
	service  *forecasting.Service
	maxBatch int
	log      zerolog.Logger
}

// NewHandler creates a new forecasting handler
func NewHandler(service *forecasting.Service, maxBatch int, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		maxBatch: maxBatch,
		log:      log.With().Str("handler", "forecasting").Logger(),
	}
}

// SeriesRequest is the shared body of the trend and seasonality endpoints
type SeriesRequest struct {
	Transactions []domain.Transaction    `json:"transactions"`
	Metric       metrics.Kind            `json:"metric,omitempty"`      // defaults to net
	Granularity  forecasting.Granularity `json:"granularity,omitempty"` // defaults to month
}

// ForecastRequest is the body of POST /api/forecast
type ForecastRequest struct {
	SeriesRequest
	Horizon int                   `json:"horizon"`
	Model   forecasting.ModelKind `json:"model,omitempty"` // empty = auto-select
}

// HandleTrend handles POST /api/forecast/trend
func (h *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	var request SeriesRequest

	if !h.decodeSeries(w, r, &request) {
		return
	}

	startTime := time.Now()
	result := h.service.Trend(request.Transactions, request.Metric, request.Granularity)
	elapsed := time.Since(startTime)

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Str("direction", string(result.Direction)).
		Dur("elapsed", elapsed).
		Msg("Trend computed")

	h.writeJSON(w, http.StatusOK, result)
}

// HandleSeasonality handles POST /api/forecast/seasonality
func (h *Handler) HandleSeasonality(w http.ResponseWriter, r *http.Request) {
	var request SeriesRequest

	if !h.decodeSeries(w, r, &request) {
		return
	}

	startTime := time.Now()
	result := h.service.Seasonality(request.Transactions, request.Metric, request.Granularity)
	elapsed := time.Since(startTime)

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Bool("detected", result.Detected).
		Dur("elapsed", elapsed).
		Msg("Seasonality computed")

	h.writeJSON(w, http.StatusOK, result)
}

// HandleForecast handles POST /api/forecast
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	var request ForecastRequest

	// Parse request body
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !h.validateSeries(w, &request.SeriesRequest) {
		return
	}
	if request.Horizon < 1 {
		h.writeError(w, http.StatusBadRequest, "Horizon must be at least 1")
		return
	}
	switch request.Model {
	case forecasting.ModelAuto, forecasting.ModelLinear, forecasting.ModelExponential, forecasting.ModelPolynomial:
	default:
		h.writeError(w, http.StatusBadRequest, "Unknown model: "+string(request.Model))
		return
	}

	startTime := time.Now()
	result, err := h.service.Forecast(
		request.Transactions,
		request.Metric,
		request.Granularity,
		request.Horizon,
		request.Model,
	)
	elapsed := time.Since(startTime)

	if err != nil {
		if errors.Is(err, forecasting.ErrInsufficientData) {
			h.writeError(w, http.StatusUnprocessableEntity, "Not enough history to forecast: "+err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Forecast failed: "+err.Error())
		return
	}

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Int("horizon", request.Horizon).
		Str("model", string(result.Model)).
		Float64("accuracy", result.Accuracy).
		Dur("elapsed", elapsed).
		Msg("Forecast completed")

	h.writeJSON(w, http.StatusOK, result)
}

// decodeSeries parses and validates the shared series request shape,
// writing the error response itself on failure.
func (h *Handler) decodeSeries(w http.ResponseWriter, r *http.Request, request *SeriesRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return h.validateSeries(w, request)
}

func (h *Handler) validateSeries(w http.ResponseWriter, request *SeriesRequest) bool {
	if len(request.Transactions) == 0 {
		h.writeError(w, http.StatusBadRequest, "No transactions provided")
		return false
	}
	if len(request.Transactions) > h.maxBatch {
		h.writeError(w, http.StatusBadRequest, "Too many transactions")
		return false
	}
	if request.Metric == "" {
		request.Metric = metrics.KindNet
	}
	if !request.Metric.Valid() {
		h.writeError(w, http.StatusBadRequest, "Unknown metric: "+string(request.Metric))
		return false
	}
	if request.Granularity == "" {
		request.Granularity = forecasting.GranularityMonth
	}
	if !request.Granularity.Valid() {
		h.writeError(w, http.StatusBadRequest, "Unknown granularity: "+string(request.Granularity))
		return false
	}
	return true
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
