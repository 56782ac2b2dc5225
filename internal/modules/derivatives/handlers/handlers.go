// Package handlers provides HTTP handlers for option pricing operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/derivatives"
)

// Handler handles derivatives HTTP requests
type Handler struct {
	pricer          *derivatives.Pricer
	solver          *derivatives.IVSolver
	surfaces        *derivatives.SurfaceBuilder
	defaultRiskFree float64
	log             zerolog.Logger
}

// NewHandler creates a new derivatives handler. defaultRiskFree fills
// in surface requests that omit the rate.
func NewHandler(defaultRiskFree float64, log zerolog.Logger) *Handler {
	return &Handler{
		pricer:          derivatives.NewPricer(log),
		solver:          derivatives.NewIVSolver(log),
		surfaces:        derivatives.NewSurfaceBuilder(log),
		defaultRiskFree: defaultRiskFree,
		log:             log.With().Str("handler", "derivatives").Logger(),
	}
}

// HandleBlackScholes handles POST /api/derivatives/price/blackscholes
func (h *Handler) HandleBlackScholes(w http.ResponseWriter, r *http.Request) {
	var spec derivatives.OptionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.pricer.BlackScholes(spec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

type latticeRequest struct {
	derivatives.OptionSpec
	Steps int                       `json:"steps"`
	Style derivatives.ExerciseStyle `json:"exercise_style"`
}

// HandleBinomial handles POST /api/derivatives/price/binomial
func (h *Handler) HandleBinomial(w http.ResponseWriter, r *http.Request) {
	var req latticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Style == "" {
		req.Style = derivatives.European
	}

	result, err := h.pricer.BinomialTree(req.OptionSpec, req.Steps, req.Style)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

// HandleTrinomial handles POST /api/derivatives/price/trinomial
func (h *Handler) HandleTrinomial(w http.ResponseWriter, r *http.Request) {
	var req latticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Style == "" {
		req.Style = derivatives.European
	}

	result, err := h.pricer.TrinomialTree(req.OptionSpec, req.Steps, req.Style)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

// HandleCompare handles POST /api/derivatives/price/compare
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req latticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.pricer.CompareModels(req.OptionSpec, req.Steps)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

type impliedVolRequest struct {
	derivatives.OptionSpec
	MarketPrice float64 `json:"market_price"`
	// Validate re-prices at the solved volatility and attaches the
	// round-trip error to the response
	Validate bool `json:"validate"`
}

type impliedVolResponse struct {
	*derivatives.ImpliedVolResult
	Validation *derivatives.IVValidation `json:"validation,omitempty"`
}

// HandleImpliedVol handles POST /api/derivatives/implied-vol
func (h *Handler) HandleImpliedVol(w http.ResponseWriter, r *http.Request) {
	var req impliedVolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.solver.Solve(req.MarketPrice, req.OptionSpec)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := impliedVolResponse{ImpliedVolResult: result}
	if req.Validate && result.Converged {
		validation := h.solver.Validate(result.ImpliedVolatility, req.MarketPrice, req.OptionSpec)
		response.Validation = &validation
	}
	h.writeData(w, response)
}

type surfaceRequest struct {
	derivatives.SurfaceParams
	Chain []derivatives.ChainContract `json:"chain"`
}

type surfaceResponse struct {
	*derivatives.VolSurface
	ATMTermStructure []derivatives.ATMPoint `json:"atm_term_structure"`
}

// HandleSurface handles POST /api/derivatives/surface
func (h *Handler) HandleSurface(w http.ResponseWriter, r *http.Request) {
	var req surfaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RiskFreeRate == 0 {
		req.RiskFreeRate = h.defaultRiskFree
	}

	surface, err := h.surfaces.Build(req.Chain, req.SurfaceParams)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, surfaceResponse{
		VolSurface:       surface,
		ATMTermStructure: h.surfaces.ATMTermStructure(surface),
	})
}

// writeError maps module sentinels to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, derivatives.ErrInvalidParameter),
		errors.Is(err, derivatives.ErrInvalidTreeParameters):
		status = http.StatusBadRequest
	}

	h.log.Warn().Err(err).Msg("Derivatives request failed")
	http.Error(w, err.Error(), status)
}

// writeData writes the standard {data, metadata} response envelope
func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
