package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all universe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		r.Post("/prices", h.HandleIngestPrices)
		r.Get("/symbols", h.HandleListSymbols)
		r.Get("/{symbol}/prices", h.HandleGetPrices)
	})
}
