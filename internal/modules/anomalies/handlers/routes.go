package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all anomaly detection routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/anomalies", func(r chi.Router) {
		r.Post("/detect", h.HandleDetect)
	})
}
