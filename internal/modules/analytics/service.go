package analytics

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/universe"
)

// DefaultLookbackDays is how many daily prices are pulled when the
// caller doesn't specify a window (one trading year plus the seed point)
const DefaultLookbackDays = 253

// Service wires the analytics engines to the historical price store
type Service struct {
	historyDB   *universe.HistoryDB
	regression  *RegressionEngine
	correlation *CorrelationEngine
	pca         *PCAEngine
	log         zerolog.Logger
}

// NewService creates the analytics service
func NewService(historyDB *universe.HistoryDB, log zerolog.Logger) *Service {
	return &Service{
		historyDB:   historyDB,
		regression:  NewRegressionEngine(log),
		correlation: NewCorrelationEngine(log),
		pca:         NewPCAEngine(log),
		log:         log.With().Str("service", "analytics").Logger(),
	}
}

// ReturnSeriesFor loads up to lookbackDays of prices for a symbol and
// converts them into a return series
func (s *Service) ReturnSeriesFor(symbol string, lookbackDays int) (*ReturnSeries, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	prices, err := s.historyDB.GetDailyPrices(symbol, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices for %s: %w", symbol, err)
	}
	return NewReturnSeries(symbol, prices)
}

// ReturnMatrixFor builds an aligned return matrix for the symbols.
// Also used by the risk module's Monte Carlo engine.
func (s *Service) ReturnMatrixFor(symbols []string, lookbackDays int) (*ReturnMatrix, error) {
	if len(symbols) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 tickers, got %d",
			ErrInsufficientAssets, len(symbols))
	}
	series := make([]*ReturnSeries, 0, len(symbols))
	for _, symbol := range symbols {
		rs, err := s.ReturnSeriesFor(symbol, lookbackDays)
		if err != nil {
			return nil, err
		}
		series = append(series, rs)
	}
	return BuildReturnMatrix(series)
}

// Regression regresses a symbol's returns against a benchmark symbol
func (s *Service) Regression(symbol, benchmark string, lookbackDays int) (*RegressionResult, error) {
	asset, err := s.ReturnSeriesFor(symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	bench, err := s.ReturnSeriesFor(benchmark, lookbackDays)
	if err != nil {
		return nil, err
	}

	// Align the two series on common dates before regressing
	matrix, err := BuildReturnMatrix([]*ReturnSeries{asset, bench})
	if err != nil {
		return nil, err
	}
	aligned := &ReturnSeries{Symbol: symbol, Dates: matrix.Dates, Returns: matrix.Columns[symbol]}
	alignedBench := &ReturnSeries{Symbol: benchmark, Dates: matrix.Dates, Returns: matrix.Columns[benchmark]}

	return s.regression.Run(aligned, alignedBench)
}

// Correlation computes the pairwise correlation analysis for symbols
func (s *Service) Correlation(symbols []string, method string, lookbackDays int) (*CorrelationResult, error) {
	matrix, err := s.ReturnMatrixFor(symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	return s.correlation.Run(matrix, method)
}

// PCA runs principal component analysis over the symbols' returns
func (s *Service) PCA(symbols []string, lookbackDays int) (*PCAResult, error) {
	matrix, err := s.ReturnMatrixFor(symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	return s.pca.Run(matrix)
}
