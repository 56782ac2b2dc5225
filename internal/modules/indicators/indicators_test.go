package indicators

import (
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdash/quantdash/internal/modules/analytics"
)

// constantCloses returns n copies of price
func constantCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

// trendingCloses compounds a fixed daily return from a starting price
func trendingCloses(n int, start, dailyReturn float64) []float64 {
	closes := make([]float64, n)
	closes[0] = start
	for i := 1; i < n; i++ {
		closes[i] = closes[i-1] * (1 + dailyReturn)
	}
	return closes
}

func TestBollinger_FlatSeries(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	bands, err := engine.Bollinger(constantCloses(30, 100), 20, 2.0)
	require.NoError(t, err)

	assert.InDelta(t, 100, bands.Middle, 1e-9)
	assert.InDelta(t, 100, bands.Upper, 1e-9)
	assert.InDelta(t, 100, bands.Lower, 1e-9)
	assert.InDelta(t, 0, bands.WidthPct, 1e-9)
	// Collapsed bands put the price at the middle
	assert.InDelta(t, 50, bands.PercentB, 1e-9)
	assert.Equal(t, SignalNeutral, bands.Signal)
}

func TestBollinger_SpikeAboveUpperBand(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	closes := constantCloses(30, 100)
	closes[len(closes)-1] = 130

	bands, err := engine.Bollinger(closes, 20, 2.0)
	require.NoError(t, err)

	assert.Equal(t, SignalOverbought, bands.Signal)
	assert.Greater(t, bands.PercentB, 100.0)
	assert.Greater(t, bands.Upper, bands.Middle)
	assert.Less(t, bands.Lower, bands.Middle)
}

func TestBollinger_InsufficientData(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	_, err := engine.Bollinger(constantCloses(10, 100), 20, 2.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInsufficientData)
}

func TestRSI_MonotonicSeries(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	rising, err := engine.RSI(trendingCloses(60, 100, 0.01), 14)
	require.NoError(t, err)
	assert.Equal(t, SignalOverbought, rising.Signal)
	assert.Greater(t, rising.Value, rsiOverbought)
	assert.LessOrEqual(t, rising.Value, 100.0)
	assert.Equal(t, 14, rising.Period)

	falling, err := engine.RSI(trendingCloses(60, 100, -0.01), 14)
	require.NoError(t, err)
	assert.Equal(t, SignalOversold, falling.Signal)
	assert.Less(t, falling.Value, rsiOversold)
	assert.GreaterOrEqual(t, falling.Value, 0.0)
}

func TestRSI_AlternatingSeriesIsNeutral(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	closes := make([]float64, 60)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}

	rsi, err := engine.RSI(closes, 14)
	require.NoError(t, err)
	assert.Equal(t, SignalNeutral, rsi.Signal)
	assert.InDelta(t, 50, rsi.Value, 15)
}

func TestRSI_InsufficientData(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	_, err := engine.RSI(constantCloses(14, 100), 14)
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInsufficientData)
}

func TestAverages_FullHistory(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	mas, err := engine.Averages(trendingCloses(250, 100, 0.001))
	require.NoError(t, err)

	for _, window := range []int{10, 20, 50, 100, 200} {
		key := fmt.Sprintf("MA%d", window)
		require.Contains(t, mas.SMA, key)
		assert.Equal(t, "Bullish (Price > MA)", mas.Signals[key],
			"rising price sits above every trailing average")
	}
	for _, window := range []int{12, 26, 50, 200} {
		assert.Contains(t, mas.EMA, fmt.Sprintf("EMA%d", window))
	}

	// Longer windows trail further behind a rising price
	assert.Less(t, mas.SMA["MA200"], mas.SMA["MA10"])

	require.NotNil(t, mas.MACD)
	assert.Equal(t, "Bullish", mas.MACD.Trend)
	assert.InDelta(t, mas.MACD.Line-mas.MACD.Signal, mas.MACD.Histogram, 1e-9)
	assert.InDelta(t, mas.CurrentPrice, trendingCloses(250, 100, 0.001)[249], 1e-9)
}

func TestAverages_ShortHistorySkipsLongWindows(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	mas, err := engine.Averages(constantCloses(30, 100))
	require.NoError(t, err)

	assert.Contains(t, mas.SMA, "MA10")
	assert.Contains(t, mas.SMA, "MA20")
	assert.NotContains(t, mas.SMA, "MA50")
	assert.NotContains(t, mas.SMA, "MA200")
	assert.Nil(t, mas.MACD, "MACD needs slow plus signal periods of history")
}

func TestAverages_InsufficientData(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	_, err := engine.Averages(constantCloses(5, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInsufficientData)
}

func TestRiskRatios_ProfitableSeries(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	// Mostly up with occasional down days: strongly positive ratios
	closes := make([]float64, 253)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		r := 0.02
		if i%3 == 0 {
			r = -0.005
		}
		closes[i] = closes[i-1] * (1 + r)
	}

	ratios, err := engine.RiskRatios(closes, 0.05)
	require.NoError(t, err)

	assert.Greater(t, ratios.SharpeRatio, 1.0)
	assert.Greater(t, ratios.SortinoRatio, ratios.SharpeRatio,
		"sortino ignores upside volatility, so it exceeds sharpe here")
	assert.Greater(t, ratios.AnnualizedVolatility, 0.0)
	assert.NotEmpty(t, ratios.SharpeInterpretation)
	assert.NotEmpty(t, ratios.SortinoInterpretation)
}

func TestRiskRatios_InsufficientData(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	_, err := engine.RiskRatios([]float64{100, 101}, 0.05)
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInsufficientData)
}

func TestInterpretRiskRatio(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{-0.5, "Poor - Negative returns relative to risk-free rate"},
		{0.3, "Poor - Suboptimal risk-adjusted returns"},
		{0.8, "Below Average - Low risk-adjusted returns"},
		{1.2, "Average - Acceptable risk-adjusted returns"},
		{1.8, "Good - Strong risk-adjusted returns"},
		{2.5, "Very Good - Excellent risk-adjusted returns"},
		{3.5, "Exceptional - Outstanding risk-adjusted returns"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, interpretRiskRatio(tc.ratio), "ratio %.2f", tc.ratio)
	}
}

func TestLast(t *testing.T) {
	assert.True(t, math.IsNaN(last(nil)))
	assert.InDelta(t, 3, last([]float64{1, 2, 3}), 1e-12)
}
