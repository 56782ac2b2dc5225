package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdash/quantdash/internal/modules/analytics"
)

// alternatingMatrix builds a return matrix where each asset alternates
// between +amplitude and -amplitude daily returns (mean ~0)
func alternatingMatrix(observations int, amplitudes map[string]float64) *analytics.ReturnMatrix {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := make([]string, observations)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i).Format("2006-01-02")
	}

	matrix := &analytics.ReturnMatrix{
		Dates:   dates,
		Columns: make(map[string][]float64, len(amplitudes)),
	}
	for symbol, amp := range amplitudes {
		returns := make([]float64, observations)
		for i := range returns {
			if i%2 == 0 {
				returns[i] = amp
			} else {
				returns[i] = -amp
			}
		}
		matrix.Symbols = append(matrix.Symbols, symbol)
		matrix.Columns[symbol] = returns
	}
	return matrix
}

func TestMonteCarlo_SingleAssetScenario(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(252, map[string]float64{"SPY": 0.01})

	result, err := engine.Run(matrix, SimulationParams{
		Simulations:       10000,
		HorizonDays:       252,
		InitialInvestment: 100000,
		Seed:              42,
	})
	require.NoError(t, err)

	var95 := result.VaR["95"]
	var99 := result.VaR["99"]

	assert.Greater(t, var95.Value, 0.0, "VaR(95) should be a positive loss amount")
	assert.Greater(t, var99.Value, 0.0, "VaR(99) should be a positive loss amount")
	assert.Greater(t, var99.Value, var95.Value, "VaR(99) should exceed VaR(95)")
	assert.Equal(t, 10000, result.Simulations)
	assert.Equal(t, 252, result.HorizonDays)
}

func TestMonteCarlo_ESAlwaysAtLeastVaR(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(100, map[string]float64{"A": 0.01, "B": 0.015, "C": 0.008})

	for _, seed := range []uint64{1, 7, 99} {
		result, err := engine.Run(matrix, SimulationParams{
			Simulations:      2000,
			HorizonDays:      60,
			ConfidenceLevels: []float64{0.90, 0.95, 0.99},
			Seed:             seed,
		})
		require.NoError(t, err)

		for conf, v := range result.VaR {
			es := result.ES[conf]
			assert.GreaterOrEqual(t, es.Value, v.Value,
				fmt.Sprintf("ES must be at least VaR at %s%% confidence (seed %d)", conf, seed))
		}
	}
}

func TestMonteCarlo_Deterministic(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(100, map[string]float64{"A": 0.01, "B": 0.02})

	params := SimulationParams{Simulations: 1000, HorizonDays: 30, Seed: 7}
	r1, err := engine.Run(matrix, params)
	require.NoError(t, err)
	r2, err := engine.Run(matrix, params)
	require.NoError(t, err)

	assert.Equal(t, r1.VaR["95"].Value, r2.VaR["95"].Value)
	assert.Equal(t, r1.Scenario.ExpectedValue, r2.Scenario.ExpectedValue)
}

func TestMonteCarlo_Defaults(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(60, map[string]float64{"A": 0.005})

	result, err := engine.Run(matrix, SimulationParams{Simulations: 500, HorizonDays: 10, Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, float64(DefaultInitialInvestment), result.InitialInvestment)
	assert.Contains(t, result.VaR, "95")
	assert.Contains(t, result.VaR, "99")
	assert.Len(t, result.Percentiles, 9)
	assert.InDelta(t, 1.0, result.Weights["A"], 1e-12)
}

func TestMonteCarlo_ScenarioBands(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(60, map[string]float64{"A": 0.01, "B": 0.01})

	result, err := engine.Run(matrix, SimulationParams{Simulations: 2000, HorizonDays: 30, Seed: 3})
	require.NoError(t, err)

	// Percentile bands: best case (75th) above worst case (10th),
	// median between them
	assert.Greater(t, result.Scenario.PercentileBest, result.Scenario.PercentileWorst)
	assert.GreaterOrEqual(t, result.Scenario.PercentileBest, result.Scenario.MedianValue)
	assert.LessOrEqual(t, result.Scenario.PercentileWorst, result.Scenario.MedianValue)
	assert.GreaterOrEqual(t, result.Scenario.ProbabilityOfLoss, 0.0)
	assert.LessOrEqual(t, result.Scenario.ProbabilityOfLoss, 1.0)
}

func TestMonteCarlo_CustomAllocation(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(60, map[string]float64{"A": 0.01, "B": 0.02})

	result, err := engine.Run(matrix, SimulationParams{
		Simulations: 500,
		HorizonDays: 10,
		Allocation:  map[string]float64{"A": 0.6, "B": 0.4},
		Seed:        1,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, result.Weights["A"], 1e-9)
	assert.InDelta(t, 0.4, result.Weights["B"], 1e-9)
}

func TestMonteCarlo_InvalidAllocation(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(60, map[string]float64{"A": 0.01, "B": 0.02})

	cases := []map[string]float64{
		{"A": 0.3, "B": 0.3},  // sums to 0.6
		{"A": 1.0},            // missing B
		{"A": 1.5, "B": -0.5}, // negative weight
	}
	for _, allocation := range cases {
		_, err := engine.Run(matrix, SimulationParams{
			Simulations: 100,
			HorizonDays: 5,
			Allocation:  allocation,
			Seed:        1,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidAllocation)
	}
}

func TestMonteCarlo_InvalidParameters(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(60, map[string]float64{"A": 0.01})

	_, err := engine.Run(matrix, SimulationParams{Simulations: -1})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = engine.Run(matrix, SimulationParams{Simulations: 100, ConfidenceLevels: []float64{1.5}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMonteCarlo_InsufficientHistory(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	matrix := alternatingMatrix(10, map[string]float64{"A": 0.01})

	_, err := engine.Run(matrix, SimulationParams{Simulations: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInsufficientData)
}

func TestMonteCarlo_IdenticalAssetsFactorization(t *testing.T) {
	engine := NewMonteCarloEngine(zerolog.Nop())
	// Identical columns make the covariance matrix singular; the engine
	// must recover via diagonal jitter rather than fail
	matrix := alternatingMatrix(60, map[string]float64{"A": 0.01})
	matrix.Symbols = append(matrix.Symbols, "B")
	matrix.Columns["B"] = matrix.Columns["A"]

	result, err := engine.Run(matrix, SimulationParams{Simulations: 500, HorizonDays: 10, Seed: 1})
	require.NoError(t, err)
	assert.Greater(t, result.VaR["95"].Value, 0.0)
}
