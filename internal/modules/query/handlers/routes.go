package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all query routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/query", h.HandleExecute)
}
