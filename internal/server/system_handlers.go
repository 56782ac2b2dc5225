package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/quantdash/quantdash/internal/database"
	"github.com/quantdash/quantdash/internal/modules/universe"
)

// SystemHandlers serves process and database status endpoints
type SystemHandlers struct {
	historyDB *database.DB
	cacheDB   *database.DB
	history   *universe.HistoryDB
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates the system status handlers
func NewSystemHandlers(historyDB, cacheDB *database.DB, history *universe.HistoryDB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		historyDB: historyDB,
		cacheDB:   cacheDB,
		history:   history,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	symbols, err := h.history.ListSymbols()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to count tracked symbols")
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"status":         "ok",
			"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
			"cpu_percent":    cpuPct,
			"memory_percent": memPct,
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
			"databases": map[string]interface{}{
				"history": h.historyDB.Path(),
				"cache":   h.cacheDB.Path(),
			},
			"tracked_symbols": len(symbols),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// systemStats samples CPU and memory usage. The 100ms CPU window keeps
// the endpoint responsive for status pollers.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
