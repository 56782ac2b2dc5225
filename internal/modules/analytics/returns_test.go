package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdash/quantdash/internal/modules/universe"
)

// priceSeries builds a DailyPrice slice with sequential weekday-agnostic dates
func priceSeries(closes ...float64) []universe.DailyPrice {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]universe.DailyPrice, len(closes))
	for i, c := range closes {
		prices[i] = universe.DailyPrice{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Close: c,
		}
	}
	return prices
}

// returnSeries builds a ReturnSeries directly from returns with aligned dates
func returnSeries(symbol string, returns []float64) *ReturnSeries {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := make([]string, len(returns))
	for i := range returns {
		dates[i] = start.AddDate(0, 0, i).Format("2006-01-02")
	}
	return &ReturnSeries{Symbol: symbol, Dates: dates, Returns: returns}
}

func TestNewReturnSeries_SimpleReturns(t *testing.T) {
	rs, err := NewReturnSeries("TEST", priceSeries(100, 110, 99))
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	assert.InDelta(t, 0.10, rs.Returns[0], 1e-12)
	assert.InDelta(t, -0.10, rs.Returns[1], 1e-12)
	assert.Equal(t, "2025-01-02", rs.Dates[0])
}

func TestNewReturnSeries_InsufficientData(t *testing.T) {
	_, err := NewReturnSeries("TEST", priceSeries(100))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestNewReturnSeries_ZeroPrice(t *testing.T) {
	_, err := NewReturnSeries("TEST", priceSeries(0, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDegenerateData)
}

func TestBuildReturnMatrix_AlignsOnCommonDates(t *testing.T) {
	a := returnSeries("A", []float64{0.01, 0.02, 0.03})
	// B is missing A's first date
	b := &ReturnSeries{
		Symbol:  "B",
		Dates:   a.Dates[1:],
		Returns: []float64{-0.01, 0.005},
	}

	matrix, err := BuildReturnMatrix([]*ReturnSeries{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, matrix.NumObservations())
	assert.Equal(t, []float64{0.02, 0.03}, matrix.Columns["A"])
	assert.Equal(t, []float64{-0.01, 0.005}, matrix.Columns["B"])
	assert.Equal(t, a.Dates[1:], matrix.Dates)
}

func TestBuildReturnMatrix_NoOverlap(t *testing.T) {
	a := returnSeries("A", []float64{0.01, 0.02})
	b := &ReturnSeries{
		Symbol:  "B",
		Dates:   []string{"2020-01-01", "2020-01-02"},
		Returns: []float64{0.01, 0.02},
	}

	_, err := BuildReturnMatrix([]*ReturnSeries{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBuildReturnMatrix_SingleSeries(t *testing.T) {
	a := returnSeries("A", []float64{0.01, 0.02})
	_, err := BuildReturnMatrix([]*ReturnSeries{a})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientAssets)
}

func TestBuildReturnMatrix_ManySymbols(t *testing.T) {
	var series []*ReturnSeries
	for i := 0; i < 5; i++ {
		series = append(series, returnSeries(fmt.Sprintf("S%d", i), []float64{0.01, -0.01, 0.02}))
	}

	matrix, err := BuildReturnMatrix(series)
	require.NoError(t, err)
	assert.Equal(t, 5, matrix.NumAssets())
	assert.Equal(t, 3, matrix.NumObservations())
}
