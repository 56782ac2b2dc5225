package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all indicator routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/indicators", func(r chi.Router) {
		r.Get("/{symbol}", h.HandleSnapshot)
		r.Get("/{symbol}/bollinger", h.HandleBollinger)
		r.Get("/{symbol}/rsi", h.HandleRSI)
	})
}
