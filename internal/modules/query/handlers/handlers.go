// Package handlers provides the HTTP surface of the query engine.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/query"
)

// Handler handles query HTTP requests
type Handler struct {
	engine   *query.Engine
	maxBatch int
	log      zerolog.Logger
}

// NewHandler creates a new query handler
func NewHandler(engine *query.Engine, maxBatch int, log zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		maxBatch: maxBatch,
		log:      log.With().Str("handler", "query").Logger(),
	}
}

// ExecuteRequest is the body of POST /api/query. Custom predicates are not
// expressible over the wire; they are a programmatic-embedding feature.
type ExecuteRequest struct {
	Transactions []domain.Transaction `json:"transactions"`
	Query        query.Query          `json:"query"`
}

// ExecuteResponse carries the aggregated rows
type ExecuteResponse struct {
	Rows []query.Row `json:"rows"`
}

// HandleExecute handles POST /api/query
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var request ExecuteRequest

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
	rows, err := h.engine.Execute(request.Transactions, request.Query)
	elapsed := time.Since(startTime)

	if err != nil {
		if errors.Is(err, query.ErrUnknownField) {
			h.writeError(w, http.StatusBadRequest, "Unknown field: "+err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, "Query failed: "+err.Error())
		return
	}

	h.log.Info().
		Int("transactions", len(request.Transactions)).
		Int("rows", len(rows)).
		Dur("elapsed", elapsed).
		Msg("Query executed")

	h.writeJSON(w, http.StatusOK, ExecuteResponse{Rows: rows})
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
