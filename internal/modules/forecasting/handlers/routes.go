package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all forecasting routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/forecast", func(r chi.Router) {
		r.Post("/", h.HandleForecast)
		r.Post("/trend", h.HandleTrend)
		r.Post("/seasonality", h.HandleSeasonality)
	})
}
