package analytics

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantdash/quantdash/pkg/formulas"
)

// PCAEngine performs principal component analysis over a standardized
// return matrix
type PCAEngine struct {
	log zerolog.Logger
}

// NewPCAEngine creates a PCA engine
func NewPCAEngine(log zerolog.Logger) *PCAEngine {
	return &PCAEngine{
		log: log.With().Str("component", "pca_engine").Logger(),
	}
}

// Run standardizes each return column to zero mean and unit variance,
// eigendecomposes the resulting correlation matrix, and reports
// components sorted by descending eigenvalue with explained-variance
// ratios and loadings.
func (e *PCAEngine) Run(matrix *ReturnMatrix) (*PCAResult, error) {
	nAssets := matrix.NumAssets()
	if nAssets < 2 {
		return nil, fmt.Errorf("%w: need at least 2 tickers for PCA, got %d",
			ErrInsufficientAssets, nAssets)
	}

	symbols := matrix.Symbols
	nObs := matrix.NumObservations()

	// Standardize columns; zero variance breaks the z-score transform
	standardized := make([][]float64, nAssets)
	for i, symbol := range symbols {
		col := matrix.Columns[symbol]
		mu := formulas.Mean(col)
		sigma := formulas.StdDev(col)
		if sigma < 1e-12 {
			return nil, fmt.Errorf("%w: %s has zero return variance, cannot standardize",
				ErrDegenerateData, symbol)
		}
		z := make([]float64, nObs)
		for t, r := range col {
			z[t] = (r - mu) / sigma
		}
		standardized[i] = z
	}

	// Correlation matrix of the raw returns equals the covariance of
	// the standardized ones
	corr := mat.NewSymDense(nAssets, nil)
	for i := 0; i < nAssets; i++ {
		corr.SetSym(i, i, 1.0)
		for j := i + 1; j < nAssets; j++ {
			corr.SetSym(i, j, stat.Correlation(standardized[i], standardized[j], nil))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(corr, true) {
		return nil, fmt.Errorf("%w: eigendecomposition of the correlation matrix failed",
			ErrDegenerateData)
	}

	eigenvalues := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// EigenSym returns eigenvalues ascending; reverse to descending
	total := 0.0
	for _, v := range eigenvalues {
		total += v
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: correlation matrix has no positive eigenvalues",
			ErrDegenerateData)
	}

	components := make([]PCAComponent, nAssets)
	cumulative := 0.0
	n90, n95 := 0, 0
	for k := 0; k < nAssets; k++ {
		src := nAssets - 1 - k
		ev := eigenvalues[src]
		if ev < 0 {
			// Tiny negative eigenvalues from floating-point noise
			ev = 0
		}
		ratio := ev / total
		cumulative += ratio

		loadings := make(map[string]float64, nAssets)
		for i, symbol := range symbols {
			loadings[symbol] = vectors.At(i, src)
		}

		components[k] = PCAComponent{
			Component:          k + 1,
			Eigenvalue:         ev,
			ExplainedVariance:  ratio,
			CumulativeVariance: cumulative,
			Loadings:           loadings,
		}

		if n90 == 0 && cumulative >= 0.90 {
			n90 = k + 1
		}
		if n95 == 0 && cumulative >= 0.95 {
			n95 = k + 1
		}
	}
	if n90 == 0 {
		n90 = nAssets
	}
	if n95 == 0 {
		n95 = nAssets
	}

	result := &PCAResult{
		Symbols:             symbols,
		Components:          components,
		NComponentsFor90Pct: n90,
		NComponentsFor95Pct: n95,
		Observations:        nObs,
	}
	result.Interpretation = interpretPCA(result)

	return result, nil
}

// interpretPCA builds the human-readable summary
func interpretPCA(r *PCAResult) string {
	pc1 := r.Components[0].ExplainedVariance
	var structure string
	switch {
	case pc1 > 0.7:
		structure = "a single market factor dominates: the assets move together"
	case pc1 > 0.4:
		structure = "one common factor explains much of the movement with meaningful secondary factors"
	default:
		structure = "risk is spread across several independent factors"
	}
	return fmt.Sprintf("First component explains %.1f%% of variance: %s. %d of %d components capture 90%% of total variance.",
		pc1*100, structure, r.NComponentsFor90Pct, len(r.Components))
}
