// Package handlers provides HTTP handlers for technical indicator operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/internal/modules/indicators"
)

// Handler handles indicator HTTP requests
type Handler struct {
	indicators *indicators.Service
	log        zerolog.Logger
}

// NewHandler creates a new indicators handler
func NewHandler(indicatorService *indicators.Service, log zerolog.Logger) *Handler {
	return &Handler{
		indicators: indicatorService,
		log:        log.With().Str("handler", "indicators").Logger(),
	}
}

// HandleSnapshot handles GET /api/indicators/{symbol}
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	lookback := queryInt(r, "lookback_days", 0)

	snapshot, err := h.indicators.Snapshot(symbol, lookback)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, snapshot)
}

// HandleBollinger handles GET /api/indicators/{symbol}/bollinger
func (h *Handler) HandleBollinger(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	period := queryInt(r, "period", indicators.DefaultBollingerPeriod)
	stdDev := queryFloat(r, "std_dev", indicators.DefaultBollingerStdDev)
	lookback := queryInt(r, "lookback_days", 0)

	bands, err := h.indicators.Bollinger(symbol, period, stdDev, lookback)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, bands)
}

// HandleRSI handles GET /api/indicators/{symbol}/rsi
func (h *Handler) HandleRSI(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	period := queryInt(r, "period", indicators.DefaultRSIPeriod)
	lookback := queryInt(r, "lookback_days", 0)

	rsi, err := h.indicators.RSI(symbol, period, lookback)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, rsi)
}

func queryInt(r *http.Request, name string, fallback int) int {
	if value := r.URL.Query().Get(name); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func queryFloat(r *http.Request, name string, fallback float64) float64 {
	if value := r.URL.Query().Get(name); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// writeError maps module sentinels to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, analytics.ErrInsufficientData) || errors.Is(err, analytics.ErrDegenerateData) {
		status = http.StatusUnprocessableEntity
	}

	h.log.Warn().Err(err).Msg("Indicators request failed")
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
