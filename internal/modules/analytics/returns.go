// Package analytics implements return-series construction, OLS regression,
// correlation analysis and PCA over historical price data.
package analytics

import (
	"fmt"
	"sort"

	"github.com/quantdash/quantdash/internal/modules/universe"
	"github.com/quantdash/quantdash/pkg/formulas"
)

// ReturnSeries is an ordered sequence of simple daily returns derived
// from a price series, aligned to the dates of the second price onward
type ReturnSeries struct {
	Symbol  string
	Dates   []string
	Returns []float64
}

// NewReturnSeries computes simple returns r_t = (P_t - P_{t-1}) / P_{t-1}
// from a chronologically sorted price series. Needs at least 2 points.
func NewReturnSeries(symbol string, prices []universe.DailyPrice) (*ReturnSeries, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 price points for %s, got %d",
			ErrInsufficientData, symbol, len(prices))
	}

	dates := make([]string, 0, len(prices)-1)
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1].Close
		if prev == 0 {
			return nil, fmt.Errorf("%w: zero close price for %s on %s",
				ErrDegenerateData, symbol, prices[i-1].Date)
		}
		dates = append(dates, prices[i].Date)
		returns = append(returns, (prices[i].Close-prev)/prev)
	}

	return &ReturnSeries{Symbol: symbol, Dates: dates, Returns: returns}, nil
}

// Mean returns the average daily return
func (rs *ReturnSeries) Mean() float64 {
	return formulas.Mean(rs.Returns)
}

// StdDev returns the daily return volatility
func (rs *ReturnSeries) StdDev() float64 {
	return formulas.StdDev(rs.Returns)
}

// Len returns the number of return observations
func (rs *ReturnSeries) Len() int {
	return len(rs.Returns)
}

// ReturnMatrix holds aligned return series for multiple tickers. All
// columns share the same date index (the intersection of available
// dates across tickers).
type ReturnMatrix struct {
	Symbols []string
	Dates   []string
	// Columns maps symbol -> returns aligned to Dates
	Columns map[string][]float64
}

// BuildReturnMatrix aligns the given return series on their common
// dates. Series with no overlap shrink the intersection; fewer than 2
// common observations is an error.
func BuildReturnMatrix(series []*ReturnSeries) (*ReturnMatrix, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 tickers, got %d",
			ErrInsufficientAssets, len(series))
	}

	// Count date occurrences across all series; a date is common when
	// every series has it
	counts := make(map[string]int)
	for _, rs := range series {
		for _, d := range rs.Dates {
			counts[d]++
		}
	}

	var common []string
	for d, c := range counts {
		if c == len(series) {
			common = append(common, d)
		}
	}
	sort.Strings(common)

	if len(common) < 2 {
		return nil, fmt.Errorf("%w: only %d overlapping dates across %d tickers",
			ErrInsufficientData, len(common), len(series))
	}

	index := make(map[string]int, len(common))
	for i, d := range common {
		index[d] = i
	}

	symbols := make([]string, 0, len(series))
	columns := make(map[string][]float64, len(series))
	for _, rs := range series {
		col := make([]float64, len(common))
		for i, d := range rs.Dates {
			if j, ok := index[d]; ok {
				col[j] = rs.Returns[i]
			}
		}
		symbols = append(symbols, rs.Symbol)
		columns[rs.Symbol] = col
	}

	return &ReturnMatrix{Symbols: symbols, Dates: common, Columns: columns}, nil
}

// NumObservations returns the length of the aligned date index
func (m *ReturnMatrix) NumObservations() int {
	return len(m.Dates)
}

// NumAssets returns the number of tickers in the matrix
func (m *ReturnMatrix) NumAssets() int {
	return len(m.Symbols)
}
