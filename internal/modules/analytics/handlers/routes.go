package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Post("/regression", h.HandleRegression)
		r.Post("/correlation", h.HandleCorrelation)
		r.Post("/pca", h.HandlePCA)
		r.Post("/comprehensive", h.HandleComprehensive)
	})
}
