// Package handlers provides HTTP handlers for analytics operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/internal/modules/calculations"
)

// Handler handles analytics HTTP requests
type Handler struct {
	analytics        *analytics.Service
	analysis         *calculations.AnalysisService
	defaultBenchmark string
	log              zerolog.Logger
}

// NewHandler creates a new analytics handler. defaultBenchmark is used
// when a regression request omits the benchmark symbol.
func NewHandler(
	analyticsService *analytics.Service,
	analysisService *calculations.AnalysisService,
	defaultBenchmark string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		analytics:        analyticsService,
		analysis:         analysisService,
		defaultBenchmark: defaultBenchmark,
		log:              log.With().Str("handler", "analytics").Logger(),
	}
}

type regressionRequest struct {
	Symbol       string `json:"symbol"`
	Benchmark    string `json:"benchmark"`
	LookbackDays int    `json:"lookback_days"`
}

// HandleRegression handles POST /api/analytics/regression
func (h *Handler) HandleRegression(w http.ResponseWriter, r *http.Request) {
	var req regressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	if req.Benchmark == "" {
		req.Benchmark = h.defaultBenchmark
	}

	result, err := h.analytics.Regression(req.Symbol, req.Benchmark, req.LookbackDays)
	if err != nil {
		h.writeError(w, "regression", err)
		return
	}
	h.writeData(w, result)
}

type correlationRequest struct {
	Symbols      []string `json:"symbols"`
	Method       string   `json:"method"`
	LookbackDays int      `json:"lookback_days"`
}

// HandleCorrelation handles POST /api/analytics/correlation
func (h *Handler) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req correlationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Method == "" {
		req.Method = analytics.MethodPearson
	}

	result, err := h.analytics.Correlation(req.Symbols, req.Method, req.LookbackDays)
	if err != nil {
		h.writeError(w, "correlation", err)
		return
	}
	h.writeData(w, result)
}

type pcaRequest struct {
	Symbols      []string `json:"symbols"`
	LookbackDays int      `json:"lookback_days"`
}

// HandlePCA handles POST /api/analytics/pca
func (h *Handler) HandlePCA(w http.ResponseWriter, r *http.Request) {
	var req pcaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.analytics.PCA(req.Symbols, req.LookbackDays)
	if err != nil {
		h.writeError(w, "pca", err)
		return
	}
	h.writeData(w, result)
}

type comprehensiveRequest struct {
	Symbols      []string `json:"symbols"`
	Benchmark    string   `json:"benchmark"`
	LookbackDays int      `json:"lookback_days"`
}

// HandleComprehensive handles POST /api/analytics/comprehensive
func (h *Handler) HandleComprehensive(w http.ResponseWriter, r *http.Request) {
	var req comprehensiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Benchmark == "" {
		req.Benchmark = h.defaultBenchmark
	}

	result, err := h.analysis.Comprehensive(req.Symbols, req.Benchmark, req.LookbackDays)
	if err != nil {
		h.writeError(w, "comprehensive", err)
		return
	}
	h.writeData(w, result)
}

// writeError maps module sentinels to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, operation string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, analytics.ErrInsufficientData),
		errors.Is(err, analytics.ErrInsufficientAssets),
		errors.Is(err, analytics.ErrDegenerateData):
		status = http.StatusUnprocessableEntity
	}

	h.log.Warn().Str("operation", operation).Err(err).Msg("Analytics request failed")
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
