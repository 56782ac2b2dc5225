package calculations

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/internal/modules/risk"
	"github.com/quantdash/quantdash/internal/modules/universe"

	_ "modernc.org/sqlite"
)

// seedPrices writes n days of synthetic prices whose daily returns
// oscillate at a symbol-specific frequency, so series are volatile but
// not perfectly correlated
func seedPrices(t *testing.T, h *universe.HistoryDB, symbol string, n int, freq float64) {
	t.Helper()

	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	prices := make([]universe.DailyPrice, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1 + 0.0003 + 0.01*math.Sin(freq*float64(i))
		prices = append(prices, universe.DailyPrice{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:  price,
			High:  price * 1.01,
			Low:   price * 0.99,
			Close: price,
		})
	}
	require.NoError(t, h.UpsertDailyPrices(symbol, prices))
}

func testAnalysisService(t *testing.T) (*AnalysisService, *Cache) {
	t.Helper()

	historyConn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { historyConn.Close() })

	history := universe.NewHistoryDB(historyConn, zerolog.Nop())
	require.NoError(t, history.EnsureSchema())
	seedPrices(t, history, "AAPL", 120, 0.31)
	seedPrices(t, history, "MSFT", 120, 0.47)
	seedPrices(t, history, "SPY", 120, 0.23)

	cache, _ := testCache(t)

	analyticsService := analytics.NewService(history, zerolog.Nop())
	riskService := risk.NewService(analyticsService, zerolog.Nop())
	return NewAnalysisService(analyticsService, riskService, cache, zerolog.Nop()), cache
}

func TestComprehensive_AllSections(t *testing.T) {
	service, _ := testAnalysisService(t)

	report, err := service.Refresh([]string{"AAPL", "MSFT", "SPY"}, "SPY", 120)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "SPY", report.Benchmark)
	assert.Empty(t, report.Warnings)

	// The benchmark itself is not regressed against itself
	assert.Len(t, report.Regressions, 2)
	assert.Contains(t, report.Regressions, "AAPL")
	assert.Contains(t, report.Regressions, "MSFT")

	require.NotNil(t, report.Correlation)
	require.NotNil(t, report.PCA)
	require.NotNil(t, report.MonteCarlo)
	assert.NotNil(t, report.MonteCarlo.StressTest)
}

func TestComprehensive_ServesFromCache(t *testing.T) {
	service, _ := testAnalysisService(t)

	symbols := []string{"AAPL", "MSFT", "SPY"}
	first, err := service.Comprehensive(symbols, "SPY", 120)
	require.NoError(t, err)

	second, err := service.Comprehensive(symbols, "SPY", 120)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second call should be the cached report")

	// Refresh bypasses the cache and replaces the stored report
	third, err := service.Refresh(symbols, "SPY", 120)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	fourth, err := service.Comprehensive(symbols, "SPY", 120)
	require.NoError(t, err)
	assert.Equal(t, third.ID, fourth.ID)
}

func TestComprehensive_DegradesWithWarnings(t *testing.T) {
	service, _ := testAnalysisService(t)

	// ZZZZ has no price history. Its regression and every multi-asset
	// section degrade to warnings, but the report still carries the
	// regressions that did compute.
	report, err := service.Refresh([]string{"AAPL", "MSFT", "ZZZZ"}, "SPY", 120)
	require.NoError(t, err)

	assert.Len(t, report.Regressions, 2)
	assert.NotContains(t, report.Regressions, "ZZZZ")
	assert.Nil(t, report.Correlation)
	assert.Nil(t, report.PCA)
	assert.NotEmpty(t, report.Warnings)
}

func TestComprehensive_SingleSymbol(t *testing.T) {
	service, _ := testAnalysisService(t)

	report, err := service.Refresh([]string{"AAPL"}, "SPY", 120)
	require.NoError(t, err)

	// Multi-asset sections are skipped with a warning; Monte Carlo
	// still runs on the single series
	assert.Nil(t, report.Correlation)
	assert.Nil(t, report.PCA)
	require.NotNil(t, report.MonteCarlo)
	assert.Contains(t, report.Warnings, "correlation and pca need at least 2 symbols")
}

func TestComprehensive_NoSymbols(t *testing.T) {
	service, _ := testAnalysisService(t)

	_, err := service.Refresh(nil, "SPY", 120)
	assert.ErrorIs(t, err, risk.ErrInvalidParameter)
}
