package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all derivatives routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/derivatives", func(r chi.Router) {
		r.Route("/price", func(r chi.Router) {
			r.Post("/blackscholes", h.HandleBlackScholes)
			r.Post("/binomial", h.HandleBinomial)
			r.Post("/trinomial", h.HandleTrinomial)
			r.Post("/compare", h.HandleCompare)
		})
		r.Post("/implied-vol", h.HandleImpliedVol)
		r.Post("/surface", h.HandleSurface)
	})
}
