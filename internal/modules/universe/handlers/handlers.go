// Package handlers provides HTTP handlers for the historical price store.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/universe"
)

// Handler handles universe HTTP requests
type Handler struct {
	historyDB *universe.HistoryDB
	log       zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(historyDB *universe.HistoryDB, log zerolog.Logger) *Handler {
	return &Handler{
		historyDB: historyDB,
		log:       log.With().Str("handler", "universe").Logger(),
	}
}

type ingestPricesRequest struct {
	Symbol string                `json:"symbol"`
	Prices []universe.DailyPrice `json:"prices"`
}

// HandleIngestPrices handles POST /api/universe/prices. This is the
// seam where the external data collector delivers OHLCV series.
func (h *Handler) HandleIngestPrices(w http.ResponseWriter, r *http.Request) {
	var req ingestPricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	if len(req.Prices) == 0 {
		http.Error(w, "prices must not be empty", http.StatusBadRequest)
		return
	}

	if err := h.historyDB.UpsertDailyPrices(req.Symbol, req.Prices); err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to ingest prices")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeData(w, map[string]interface{}{
		"symbol":   req.Symbol,
		"ingested": len(req.Prices),
	})
}

// HandleListSymbols handles GET /api/universe/symbols
func (h *Handler) HandleListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.historyDB.ListSymbols()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list symbols")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	h.writeData(w, symbols)
}

// HandleGetPrices handles GET /api/universe/{symbol}/prices
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	limit := 253
	if value := r.URL.Query().Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	prices, err := h.historyDB.GetDailyPrices(symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get prices")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeData(w, map[string]interface{}{
		"symbol": symbol,
		"prices": prices,
		"count":  len(prices),
	})
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
