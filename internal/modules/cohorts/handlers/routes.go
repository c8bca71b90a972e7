package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all cohort routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cohorts", func(r chi.Router) {
		r.Post("/", h.HandleAnalyze)
		r.Post("/rolling", h.HandleRolling)
	})
}
