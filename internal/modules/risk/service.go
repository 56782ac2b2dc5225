package risk

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/analytics"
)

// Service wires the Monte Carlo engine to historical return data
type Service struct {
	analytics *analytics.Service
	engine    *MonteCarloEngine
	log       zerolog.Logger
}

// NewService creates the risk service
func NewService(analyticsService *analytics.Service, log zerolog.Logger) *Service {
	return &Service{
		analytics: analyticsService,
		engine:    NewMonteCarloEngine(log),
		log:       log.With().Str("service", "risk").Logger(),
	}
}

// MonteCarlo loads historical returns for the symbols and runs the
// simulation. A single symbol is allowed; the stress correlation
// breakdown only applies from two assets up.
func (s *Service) MonteCarlo(symbols []string, lookbackDays int, params SimulationParams) (*MonteCarloResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", ErrInvalidParameter)
	}

	matrix, err := s.matrixFor(symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	return s.engine.Run(matrix, params)
}

// matrixFor builds a return matrix, handling the single-symbol case
// that the multi-asset alignment rejects
func (s *Service) matrixFor(symbols []string, lookbackDays int) (*analytics.ReturnMatrix, error) {
	if len(symbols) > 1 {
		return s.analytics.ReturnMatrixFor(symbols, lookbackDays)
	}

	rs, err := s.analytics.ReturnSeriesFor(symbols[0], lookbackDays)
	if err != nil {
		return nil, err
	}
	return &analytics.ReturnMatrix{
		Symbols: []string{rs.Symbol},
		Dates:   rs.Dates,
		Columns: map[string][]float64{rs.Symbol: rs.Returns},
	}, nil
}
