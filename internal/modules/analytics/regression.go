package analytics

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/quantdash/quantdash/pkg/formulas"
)

// minRecommendedObservations is the sample size below which regression
// estimates get a low-sample warning. Below 2 the regression fails.
const minRecommendedObservations = 30

// RegressionEngine runs OLS regressions of asset returns against a benchmark
type RegressionEngine struct {
	log zerolog.Logger
}

// NewRegressionEngine creates a regression engine
func NewRegressionEngine(log zerolog.Logger) *RegressionEngine {
	return &RegressionEngine{
		log: log.With().Str("component", "regression_engine").Logger(),
	}
}

// Run regresses asset returns on benchmark returns:
//
//	r_asset = alpha + beta * r_benchmark + epsilon
//
// Both series must be aligned to the same dates and equal length.
func (e *RegressionEngine) Run(asset, benchmark *ReturnSeries) (*RegressionResult, error) {
	if asset.Len() != benchmark.Len() {
		return nil, fmt.Errorf("%w: asset has %d observations, benchmark has %d",
			ErrInsufficientData, asset.Len(), benchmark.Len())
	}
	if asset.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d",
			ErrInsufficientData, asset.Len())
	}

	n := asset.Len()
	benchVar := formulas.Variance(benchmark.Returns)
	if benchVar < 1e-12 {
		return nil, fmt.Errorf("%w: benchmark %s has zero variance, cannot estimate beta",
			ErrDegenerateData, benchmark.Symbol)
	}

	beta := formulas.Covariance(asset.Returns, benchmark.Returns) / benchVar
	alphaDaily := formulas.Mean(asset.Returns) - beta*formulas.Mean(benchmark.Returns)
	alphaAnnualized := alphaDaily * formulas.TradingDaysPerYear

	corr := stat.Correlation(asset.Returns, benchmark.Returns, nil)
	rSquared := corr * corr

	// Tracking error from the regression residuals
	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = asset.Returns[i] - (alphaDaily + beta*benchmark.Returns[i])
	}
	trackingError := formulas.StdDev(residuals) * math.Sqrt(formulas.TradingDaysPerYear)

	informationRatio := 0.0
	if trackingError > 1e-12 {
		informationRatio = alphaAnnualized / trackingError
	}

	result := &RegressionResult{
		Symbol:           asset.Symbol,
		Benchmark:        benchmark.Symbol,
		Beta:             beta,
		AlphaDaily:       alphaDaily,
		AlphaAnnualized:  alphaAnnualized,
		RSquared:         rSquared,
		Correlation:      corr,
		InformationRatio: informationRatio,
		Observations:     n,
		LowSampleWarning: n < minRecommendedObservations,
	}
	result.Interpretation = interpretRegression(result)

	if result.LowSampleWarning {
		e.log.Warn().
			Str("symbol", asset.Symbol).
			Int("observations", n).
			Msg("Regression on small sample, estimates are noisy")
	}

	return result, nil
}

// interpretRegression builds the human-readable summary of a regression
func interpretRegression(r *RegressionResult) string {
	var betaDesc string
	switch {
	case r.Beta > 1.2:
		betaDesc = fmt.Sprintf("%s is aggressive (beta %.2f): it amplifies %s moves", r.Symbol, r.Beta, r.Benchmark)
	case r.Beta > 0.8:
		betaDesc = fmt.Sprintf("%s moves roughly in line with %s (beta %.2f)", r.Symbol, r.Benchmark, r.Beta)
	case r.Beta > 0:
		betaDesc = fmt.Sprintf("%s is defensive (beta %.2f): it dampens %s moves", r.Symbol, r.Beta, r.Benchmark)
	default:
		betaDesc = fmt.Sprintf("%s moves inversely to %s (beta %.2f)", r.Symbol, r.Benchmark, r.Beta)
	}

	var alphaDesc string
	if r.AlphaAnnualized > 0 {
		alphaDesc = fmt.Sprintf("outperformed by %.1f%% annualized after adjusting for market exposure", r.AlphaAnnualized*100)
	} else {
		alphaDesc = fmt.Sprintf("underperformed by %.1f%% annualized after adjusting for market exposure", -r.AlphaAnnualized*100)
	}

	fitDesc := "a weak fit"
	if r.RSquared > 0.7 {
		fitDesc = "a strong fit"
	} else if r.RSquared > 0.4 {
		fitDesc = "a moderate fit"
	}

	return fmt.Sprintf("%s. It %s. R-squared of %.2f indicates %s to the benchmark.",
		betaDesc, alphaDesc, r.RSquared, fitDesc)
}
