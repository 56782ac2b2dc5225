package analytics

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatrix(t *testing.T, columns map[string][]float64) *ReturnMatrix {
	t.Helper()
	var series []*ReturnSeries
	for symbol, returns := range columns {
		series = append(series, returnSeries(symbol, returns))
	}
	matrix, err := BuildReturnMatrix(series)
	require.NoError(t, err)
	return matrix
}

func TestCorrelation_MatrixProperties(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())
	matrix := testMatrix(t, map[string][]float64{
		"A": {0.01, -0.02, 0.015, 0.005, -0.01},
		"B": {0.02, -0.01, 0.005, 0.01, -0.02},
		"C": {-0.01, 0.02, -0.015, -0.005, 0.01},
	})

	result, err := engine.Run(matrix, MethodPearson)
	require.NoError(t, err)

	// Symmetric, unit diagonal, entries in [-1, 1]
	for _, s1 := range result.Symbols {
		assert.InDelta(t, 1.0, result.Matrix[s1][s1], 1e-12)
		for _, s2 := range result.Symbols {
			assert.InDelta(t, result.Matrix[s1][s2], result.Matrix[s2][s1], 1e-12)
			assert.GreaterOrEqual(t, result.Matrix[s1][s2], -1.0-1e-9)
			assert.LessOrEqual(t, result.Matrix[s1][s2], 1.0+1e-9)
		}
	}

	assert.GreaterOrEqual(t, result.DiversificationScore, 0.0)
	assert.LessOrEqual(t, result.DiversificationScore, 1.0)
	assert.NotEmpty(t, result.Interpretation)
}

func TestCorrelation_PerfectlyCorrelatedPair(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())
	returns := []float64{0.01, -0.02, 0.015, 0.005}
	matrix := testMatrix(t, map[string][]float64{
		"A": returns,
		"B": returns,
	})

	result, err := engine.Run(matrix, MethodPearson)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.Matrix["A"]["B"], 1e-9)
	assert.InDelta(t, 1.0, result.AverageCorrelation, 1e-9)
	assert.InDelta(t, 0.0, result.DiversificationScore, 1e-9)
	require.Len(t, result.HighCorrelationPairs, 1)
	assert.Empty(t, result.NegativePairs)
}

func TestCorrelation_NegativePair(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())
	returns := []float64{0.01, -0.02, 0.015, 0.005}
	inverse := make([]float64, len(returns))
	for i, r := range returns {
		inverse[i] = -r
	}
	matrix := testMatrix(t, map[string][]float64{
		"A": returns,
		"B": inverse,
	})

	result, err := engine.Run(matrix, MethodPearson)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, result.Matrix["A"]["B"], 1e-9)
	require.Len(t, result.NegativePairs, 1)
	assert.Empty(t, result.HighCorrelationPairs)
	// Diversification score is clipped to [0, 1]
	assert.InDelta(t, 0.0, result.DiversificationScore, 1e-9)
}

func TestCorrelation_RankMethods(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())
	// Monotone but non-linear relationship: rank methods see perfect
	// association where Pearson does not
	x := []float64{0.001, 0.002, 0.003, 0.004, 0.005}
	y := []float64{0.001, 0.004, 0.009, 0.016, 0.05}
	matrix := testMatrix(t, map[string][]float64{"A": x, "B": y})

	spearman, err := engine.Run(matrix, MethodSpearman)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, spearman.Matrix["A"]["B"], 1e-9)

	kendall, err := engine.Run(matrix, MethodKendall)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, kendall.Matrix["A"]["B"], 1e-9)

	pearson, err := engine.Run(matrix, MethodPearson)
	require.NoError(t, err)
	assert.Less(t, pearson.Matrix["A"]["B"], 1.0)
}

func TestCorrelation_UnknownMethod(t *testing.T) {
	engine := NewCorrelationEngine(zerolog.Nop())
	matrix := testMatrix(t, map[string][]float64{
		"A": {0.01, -0.02, 0.015},
		"B": {0.02, -0.01, 0.005},
	})

	_, err := engine.Run(matrix, "cosine")
	require.Error(t, err)
}
