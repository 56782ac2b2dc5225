package analytics

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/quantdash/quantdash/pkg/formulas"
)

// Correlation methods. Pearson is the default; the rank-based methods
// are more robust to outliers and non-linear relationships.
const (
	MethodPearson  = "pearson"
	MethodSpearman = "spearman"
	MethodKendall  = "kendall"
)

// Thresholds for flagging notable pairs
const (
	highCorrelationThreshold     = 0.7
	negativeCorrelationThreshold = -0.5
)

// CorrelationEngine computes pairwise correlation matrices and
// diversification statistics over a return matrix
type CorrelationEngine struct {
	log zerolog.Logger
}

// NewCorrelationEngine creates a correlation engine
func NewCorrelationEngine(log zerolog.Logger) *CorrelationEngine {
	return &CorrelationEngine{
		log: log.With().Str("component", "correlation_engine").Logger(),
	}
}

// Run computes the pairwise correlation matrix for the given method
// and derives the diversification score and notable pairs
func (e *CorrelationEngine) Run(matrix *ReturnMatrix, method string) (*CorrelationResult, error) {
	if matrix.NumAssets() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 tickers for correlation analysis, got %d",
			ErrInsufficientAssets, matrix.NumAssets())
	}
	if method == "" {
		method = MethodPearson
	}
	if method != MethodPearson && method != MethodSpearman && method != MethodKendall {
		return nil, fmt.Errorf("unknown correlation method %q", method)
	}

	symbols := matrix.Symbols
	out := make(map[string]map[string]float64, len(symbols))
	for _, s := range symbols {
		out[s] = make(map[string]float64, len(symbols))
		out[s][s] = 1.0
	}

	var sum float64
	var count int
	var highPairs, negativePairs []CorrelationPair

	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			c := pairCorrelation(matrix.Columns[symbols[i]], matrix.Columns[symbols[j]], method)
			out[symbols[i]][symbols[j]] = c
			out[symbols[j]][symbols[i]] = c
			sum += c
			count++

			pair := CorrelationPair{Symbol1: symbols[i], Symbol2: symbols[j], Correlation: c}
			if c > highCorrelationThreshold {
				highPairs = append(highPairs, pair)
			} else if c < negativeCorrelationThreshold {
				negativePairs = append(negativePairs, pair)
			}
		}
	}

	avg := sum / float64(count)
	diversification := 1.0 - math.Abs(avg)
	if diversification < 0 {
		diversification = 0
	} else if diversification > 1 {
		diversification = 1
	}

	result := &CorrelationResult{
		Method:               method,
		Symbols:              symbols,
		Matrix:               out,
		AverageCorrelation:   avg,
		DiversificationScore: diversification,
		HighCorrelationPairs: highPairs,
		NegativePairs:        negativePairs,
		Observations:         matrix.NumObservations(),
	}
	result.Interpretation = interpretCorrelation(result)

	return result, nil
}

// pairCorrelation computes a single pairwise correlation for the method
func pairCorrelation(x, y []float64, method string) float64 {
	switch method {
	case MethodSpearman:
		// Spearman is Pearson on average ranks
		return stat.Correlation(formulas.Ranks(x), formulas.Ranks(y), nil)
	case MethodKendall:
		return stat.Kendall(x, y, nil)
	default:
		return stat.Correlation(x, y, nil)
	}
}

// interpretCorrelation builds the human-readable summary
func interpretCorrelation(r *CorrelationResult) string {
	var divDesc string
	switch {
	case r.DiversificationScore > 0.7:
		divDesc = "well diversified"
	case r.DiversificationScore > 0.4:
		divDesc = "moderately diversified"
	default:
		divDesc = "poorly diversified"
	}

	msg := fmt.Sprintf("Average correlation of %.2f across %d assets: the portfolio is %s.",
		r.AverageCorrelation, len(r.Symbols), divDesc)
	if len(r.HighCorrelationPairs) > 0 {
		msg += fmt.Sprintf(" %d pair(s) above %.1f correlation reduce diversification benefit.",
			len(r.HighCorrelationPairs), highCorrelationThreshold)
	}
	if len(r.NegativePairs) > 0 {
		msg += fmt.Sprintf(" %d pair(s) are strongly negatively correlated and act as natural hedges.",
			len(r.NegativePairs))
	}
	return msg
}
