package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all metrics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/metrics", func(r chi.Router) {
		r.Post("/summary", h.HandleSummary)
	})
}
