// Package handlers provides HTTP handlers for risk simulation operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/internal/modules/risk"
)

// Handler handles risk HTTP requests
type Handler struct {
	risk *risk.Service
	log  zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(riskService *risk.Service, log zerolog.Logger) *Handler {
	return &Handler{
		risk: riskService,
		log:  log.With().Str("handler", "risk").Logger(),
	}
}

type monteCarloRequest struct {
	Symbols      []string `json:"symbols"`
	LookbackDays int      `json:"lookback_days"`
	risk.SimulationParams
}

// HandleMonteCarlo handles POST /api/risk/montecarlo
func (h *Handler) HandleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req monteCarloRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.risk.MonteCarlo(req.Symbols, req.LookbackDays, req.SimulationParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

// HandleStressDefaults handles GET /api/risk/stress/defaults
func (h *Handler) HandleStressDefaults(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, risk.DefaultStressParams())
}

// writeError maps module sentinels to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, risk.ErrInvalidAllocation),
		errors.Is(err, risk.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, analytics.ErrInsufficientData),
		errors.Is(err, analytics.ErrInsufficientAssets),
		errors.Is(err, analytics.ErrDegenerateData):
		status = http.StatusUnprocessableEntity
	}

	h.log.Warn().Err(err).Msg("Risk request failed")
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
