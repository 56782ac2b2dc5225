// Package risk implements Monte Carlo VaR / Expected Shortfall
// simulation with a fat-tailed crisis stress variant.
package risk

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/pkg/formulas"
)

// Defaults applied when SimulationParams fields are zero
const (
	DefaultSimulations       = 10000
	DefaultHorizonDays       = 252
	DefaultInitialInvestment = 100000

	// minHistoricalObservations is the floor for estimating mu/sigma
	minHistoricalObservations = 30

	// allocationTolerance is how far custom weights may drift from 1.0
	allocationTolerance = 0.01
)

// distributionPercentiles reported on every result
var distributionPercentiles = []int{1, 5, 10, 25, 50, 75, 90, 95, 99}

// MonteCarloEngine simulates forward portfolio paths to estimate tail risk
type MonteCarloEngine struct {
	log zerolog.Logger
}

// NewMonteCarloEngine creates a Monte Carlo engine
func NewMonteCarloEngine(log zerolog.Logger) *MonteCarloEngine {
	return &MonteCarloEngine{
		log: log.With().Str("component", "montecarlo_engine").Logger(),
	}
}

// Run simulates terminal portfolio values by drawing correlated daily
// returns per asset (Cholesky factor of the empirical covariance) and
// compounding them over the horizon, then reads VaR and ES off the
// empirical loss distribution.
func (e *MonteCarloEngine) Run(matrix *analytics.ReturnMatrix, params SimulationParams) (*MonteCarloResult, error) {
	params, err := normalizeParams(params)
	if err != nil {
		return nil, err
	}
	if matrix.NumObservations() < minHistoricalObservations {
		return nil, fmt.Errorf("%w: need at least %d historical observations to estimate return moments, got %d",
			analytics.ErrInsufficientData, minHistoricalObservations, matrix.NumObservations())
	}

	symbols := matrix.Symbols
	weights, err := resolveWeights(symbols, params.Allocation)
	if err != nil {
		return nil, err
	}

	mu, cov := estimateMoments(matrix)
	chol, err := factorize(cov)
	if err != nil {
		return nil, err
	}
	lower := lowerTriangle(chol)

	seed := params.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	e.log.Info().
		Int("simulations", params.Simulations).
		Int("horizon_days", params.HorizonDays).
		Int("assets", len(symbols)).
		Msg("Running Monte Carlo simulation")

	terminal := e.simulateTerminalValues(mu, lower, weights, params, seed)

	dailyMean, dailyStd := portfolioMoments(mu, cov, weights)
	result := e.aggregate(terminal, symbols, weights, params, dailyMean, dailyStd)

	if params.IncludeStressTest {
		stress := params.Stress
		if stress == nil {
			def := DefaultStressParams()
			stress = &def
		}
		st, err := e.stressTest(matrix, weights, mu, *stress, params, seed+1)
		if err != nil {
			// A failed stress comparison doesn't invalidate the base result
			e.log.Warn().Err(err).Msg("Stress test failed, returning base result only")
		} else {
			result.StressTest = st
		}
	}

	return result, nil
}

// simulateTerminalValues runs the simulation batches across goroutines.
// Each batch gets its own seeded RNG and writes a disjoint slice range,
// and tail statistics are only computed after every batch completes.
func (e *MonteCarloEngine) simulateTerminalValues(
	mu []float64,
	lower [][]float64,
	weights []float64,
	params SimulationParams,
	seed uint64,
) []float64 {
	nAssets := len(mu)
	terminal := make([]float64, params.Simulations)

	workers := runtime.GOMAXPROCS(0)
	if workers > params.Simulations {
		workers = params.Simulations
	}
	batchSize := (params.Simulations + workers - 1) / workers

	var wg sync.WaitGroup
	for b := 0; b < workers; b++ {
		start := b * batchSize
		end := start + batchSize
		if end > params.Simulations {
			end = params.Simulations
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(batch int, start, end int) {
			defer wg.Done()
			normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed + uint64(batch))}

			z := make([]float64, nAssets)
			eps := make([]float64, nAssets)
			for sim := start; sim < end; sim++ {
				value := params.InitialInvestment
				for t := 0; t < params.HorizonDays; t++ {
					for i := range z {
						z[i] = normal.Rand()
					}
					correlate(lower, z, eps)

					r := 0.0
					for i := range weights {
						r += weights[i] * (mu[i] + eps[i])
					}
					value *= 1 + r
				}
				terminal[sim] = value
			}
		}(b, start, end)
	}
	wg.Wait()

	return terminal
}

// aggregate turns the terminal value distribution into the result record
func (e *MonteCarloEngine) aggregate(
	terminal []float64,
	symbols []string,
	weights []float64,
	params SimulationParams,
	dailyMean, dailyStd float64,
) *MonteCarloResult {
	n := len(terminal)
	pnl := make([]float64, n)
	for i, v := range terminal {
		pnl[i] = v - params.InitialInvestment
	}
	sorted := append([]float64(nil), pnl...)
	sort.Float64s(sorted)

	varByConf := make(map[string]TailRisk, len(params.ConfidenceLevels))
	esByConf := make(map[string]TailRisk, len(params.ConfidenceLevels))
	for _, conf := range params.ConfidenceLevels {
		varRisk, esRisk := tailRisk(sorted, conf, params.InitialInvestment)
		varRisk.Interpretation = fmt.Sprintf(
			"With %.0f%% confidence, the portfolio will not lose more than $%.2f (%.2f%%) over %d days",
			conf*100, varRisk.Value, varRisk.Percentage, params.HorizonDays)
		esRisk.Interpretation = fmt.Sprintf(
			"If losses exceed the VaR threshold, the expected loss is $%.2f (%.2f%%)",
			esRisk.Value, esRisk.Percentage)
		key := confidenceKey(conf)
		varByConf[key] = varRisk
		esByConf[key] = esRisk
	}

	bands := make([]PercentileBand, 0, len(distributionPercentiles))
	for _, p := range distributionPercentiles {
		v := formulas.Percentile(terminal, float64(p))
		bands = append(bands, PercentileBand{
			Percentile: p,
			Value:      v,
			ReturnPct:  (v/params.InitialInvestment - 1) * 100,
		})
	}

	losses := 0
	for _, p := range pnl {
		if p < 0 {
			losses++
		}
	}

	weightMap := make(map[string]float64, len(symbols))
	for i, s := range symbols {
		weightMap[s] = weights[i]
	}

	return &MonteCarloResult{
		Symbols:           symbols,
		Weights:           weightMap,
		Simulations:       params.Simulations,
		HorizonDays:       params.HorizonDays,
		InitialInvestment: params.InitialInvestment,
		VaR:               varByConf,
		ES:                esByConf,
		Scenario: ScenarioStats{
			ExpectedValue:     formulas.Mean(terminal),
			MedianValue:       formulas.Percentile(terminal, 50),
			PercentileBest:    formulas.Percentile(terminal, 75),
			PercentileWorst:   formulas.Percentile(terminal, 10),
			ProbabilityOfLoss: float64(losses) / float64(n),
		},
		Percentiles: bands,
		Portfolio: PortfolioStats{
			DailyMeanReturn:      dailyMean,
			DailyStdDev:          dailyStd,
			AnnualizedReturnPct:  dailyMean * formulas.TradingDaysPerYear * 100,
			AnnualizedVolatility: dailyStd * math.Sqrt(formulas.TradingDaysPerYear) * 100,
		},
	}
}

// tailRisk reads VaR and ES at a confidence level off the sorted PnL
// distribution. ES averages the tail beyond the VaR threshold, which
// keeps ES >= VaR structurally.
func tailRisk(sortedPnl []float64, confidence, initialInvestment float64) (TailRisk, TailRisk) {
	n := len(sortedPnl)
	idx := int((1 - confidence) * float64(n))
	if idx < 1 {
		idx = 1
	}
	if idx >= n {
		idx = n - 1
	}

	varValue := -sortedPnl[idx]
	esValue := -formulas.Mean(sortedPnl[:idx])

	return TailRisk{
			Value:      varValue,
			Percentage: varValue / initialInvestment * 100,
		}, TailRisk{
			Value:      esValue,
			Percentage: esValue / initialInvestment * 100,
		}
}

// confidenceKey renders a confidence level as a stable map key ("95", "99")
func confidenceKey(conf float64) string {
	return strconv.FormatFloat(conf*100, 'f', -1, 64)
}

// estimateMoments computes per-asset mean returns and the empirical
// covariance matrix from the aligned history
func estimateMoments(matrix *analytics.ReturnMatrix) ([]float64, *mat.SymDense) {
	nObs := matrix.NumObservations()
	nAssets := matrix.NumAssets()

	mu := make([]float64, nAssets)
	data := mat.NewDense(nObs, nAssets, nil)
	for j, symbol := range matrix.Symbols {
		col := matrix.Columns[symbol]
		mu[j] = formulas.Mean(col)
		for i, r := range col {
			data.Set(i, j, r)
		}
	}

	cov := mat.NewSymDense(nAssets, nil)
	stat.CovarianceMatrix(cov, data, nil)
	return mu, cov
}

// factorize Cholesky-decomposes a covariance matrix, adding a small
// diagonal jitter when the empirical matrix is not positive definite
// (near-duplicate assets)
func factorize(cov *mat.SymDense) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if chol.Factorize(cov) {
		return &chol, nil
	}

	n := cov.SymmetricDim()
	jitter := 1e-10
	for attempt := 0; attempt < 6; attempt++ {
		jittered := mat.NewSymDense(n, nil)
		jittered.CopySym(cov)
		for i := 0; i < n; i++ {
			jittered.SetSym(i, i, jittered.At(i, i)+jitter)
		}
		if chol.Factorize(jittered) {
			return &chol, nil
		}
		jitter *= 10
	}

	return nil, fmt.Errorf("%w: covariance matrix is not positive definite",
		analytics.ErrDegenerateData)
}

// lowerTriangle extracts the Cholesky factor as a plain slice matrix
// for the hot simulation loop
func lowerTriangle(chol *mat.Cholesky) [][]float64 {
	var tri mat.TriDense
	chol.LTo(&tri)
	n, _ := tri.Dims()

	lower := make([][]float64, n)
	for i := 0; i < n; i++ {
		lower[i] = make([]float64, i+1)
		for j := 0; j <= i; j++ {
			lower[i][j] = tri.At(i, j)
		}
	}
	return lower
}

// correlate applies the lower-triangular factor to an i.i.d. normal
// vector, writing correlated draws into eps
func correlate(lower [][]float64, z, eps []float64) {
	for i := range lower {
		sum := 0.0
		for j, l := range lower[i] {
			sum += l * z[j]
		}
		eps[i] = sum
	}
}

// portfolioMoments computes the allocation-weighted daily mean return
// and volatility from the estimated asset moments
func portfolioMoments(mu []float64, cov *mat.SymDense, weights []float64) (float64, float64) {
	mean := 0.0
	for i, w := range weights {
		mean += w * mu[i]
	}

	variance := 0.0
	for i := range weights {
		for j := range weights {
			variance += weights[i] * weights[j] * cov.At(i, j)
		}
	}
	return mean, math.Sqrt(variance)
}

// normalizeParams applies defaults and validates the simulation inputs
func normalizeParams(params SimulationParams) (SimulationParams, error) {
	if params.Simulations < 0 || params.HorizonDays < 0 || params.InitialInvestment < 0 {
		return params, fmt.Errorf("%w: simulation count, horizon and investment must be positive",
			ErrInvalidParameter)
	}
	if params.Simulations == 0 {
		params.Simulations = DefaultSimulations
	}
	if params.HorizonDays == 0 {
		params.HorizonDays = DefaultHorizonDays
	}
	if params.InitialInvestment == 0 {
		params.InitialInvestment = DefaultInitialInvestment
	}
	if len(params.ConfidenceLevels) == 0 {
		params.ConfidenceLevels = []float64{0.95, 0.99}
	}
	for _, c := range params.ConfidenceLevels {
		if c <= 0 || c >= 1 {
			return params, fmt.Errorf("%w: confidence level %v must be in (0, 1)",
				ErrInvalidParameter, c)
		}
	}
	return params, nil
}

// resolveWeights maps the allocation onto the matrix symbol order,
// defaulting to equal weight and validating custom weights
func resolveWeights(symbols []string, allocation map[string]float64) ([]float64, error) {
	n := len(symbols)
	weights := make([]float64, n)

	if len(allocation) == 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
		return weights, nil
	}

	sum := 0.0
	for i, symbol := range symbols {
		w, ok := allocation[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no weight provided for %s", ErrInvalidAllocation, symbol)
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %v for %s", ErrInvalidAllocation, w, symbol)
		}
		weights[i] = w
		sum += w
	}
	if math.Abs(sum-1.0) > allocationTolerance {
		return nil, fmt.Errorf("%w: weights sum to %.4f, expected 1.0", ErrInvalidAllocation, sum)
	}

	// Renormalize so downstream math sees exactly 1.0
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}
