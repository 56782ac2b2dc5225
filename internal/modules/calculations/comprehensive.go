package calculations

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/internal/modules/risk"
)

// ComprehensiveTTL is how long a combined report stays cached. The
// inputs only change with the nightly price sync.
const ComprehensiveTTL = 24 * time.Hour

// ComprehensiveAnalysis bundles every analysis for a ticker set into
// one report. Sections that could not be computed are nil, with the
// reason recorded in Warnings.
type ComprehensiveAnalysis struct {
	ID          string                                 `json:"id"`
	GeneratedAt time.Time                              `json:"generated_at"`
	Symbols     []string                               `json:"symbols"`
	Benchmark   string                                 `json:"benchmark"`
	Regressions map[string]*analytics.RegressionResult `json:"regressions,omitempty"`
	Correlation *analytics.CorrelationResult           `json:"correlation,omitempty"`
	PCA         *analytics.PCAResult                   `json:"pca,omitempty"`
	MonteCarlo  *risk.MonteCarloResult                 `json:"monte_carlo,omitempty"`
	Warnings    []string                               `json:"warnings,omitempty"`
}

// AnalysisService runs the combined regression + correlation + PCA +
// Monte Carlo report, with results cached by parameter hash
type AnalysisService struct {
	analytics *analytics.Service
	risk      *risk.Service
	cache     *Cache
	log       zerolog.Logger
}

// NewAnalysisService creates the comprehensive analysis service
func NewAnalysisService(analyticsService *analytics.Service, riskService *risk.Service, cache *Cache, log zerolog.Logger) *AnalysisService {
	return &AnalysisService{
		analytics: analyticsService,
		risk:      riskService,
		cache:     cache,
		log:       log.With().Str("service", "comprehensive_analysis").Logger(),
	}
}

// Comprehensive returns the combined report for the symbols, serving
// from the cache when a fresh entry exists
func (s *AnalysisService) Comprehensive(symbols []string, benchmark string, lookbackDays int) (*ComprehensiveAnalysis, error) {
	key := Key("comprehensive", symbols, benchmark, lookbackDays)

	var cached ComprehensiveAnalysis
	if err := s.cache.Get(key, &cached); err == nil {
		s.log.Debug().Str("key", key).Msg("Serving comprehensive analysis from cache")
		return &cached, nil
	}

	return s.Refresh(symbols, benchmark, lookbackDays)
}

// Refresh computes the combined report, bypassing any cached entry,
// and stores the result. Individual sections degrade to warnings; the
// report only fails when every section fails.
func (s *AnalysisService) Refresh(symbols []string, benchmark string, lookbackDays int) (*ComprehensiveAnalysis, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", risk.ErrInvalidParameter)
	}

	report := &ComprehensiveAnalysis{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Symbols:     symbols,
		Benchmark:   benchmark,
		Regressions: make(map[string]*analytics.RegressionResult),
	}

	for _, symbol := range symbols {
		if symbol == benchmark {
			continue
		}
		regression, err := s.analytics.Regression(symbol, benchmark, lookbackDays)
		if err != nil {
			report.warn(fmt.Sprintf("regression %s vs %s: %v", symbol, benchmark, err))
			continue
		}
		report.Regressions[symbol] = regression
	}

	if len(symbols) >= 2 {
		correlation, err := s.analytics.Correlation(symbols, analytics.MethodPearson, lookbackDays)
		if err != nil {
			report.warn(fmt.Sprintf("correlation: %v", err))
		} else {
			report.Correlation = correlation
		}

		pca, err := s.analytics.PCA(symbols, lookbackDays)
		if err != nil {
			report.warn(fmt.Sprintf("pca: %v", err))
		} else {
			report.PCA = pca
		}
	} else {
		report.warn("correlation and pca need at least 2 symbols")
	}

	monteCarlo, err := s.risk.MonteCarlo(symbols, lookbackDays, risk.SimulationParams{
		IncludeStressTest: true,
	})
	if err != nil {
		report.warn(fmt.Sprintf("monte carlo: %v", err))
	} else {
		report.MonteCarlo = monteCarlo
	}

	if len(report.Regressions) == 0 && report.Correlation == nil &&
		report.PCA == nil && report.MonteCarlo == nil {
		return nil, fmt.Errorf("comprehensive analysis produced no results: %v", report.Warnings)
	}

	key := Key("comprehensive", symbols, benchmark, lookbackDays)
	if err := s.cache.Set(key, report, ComprehensiveTTL); err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("Failed to cache comprehensive analysis")
	}

	s.log.Info().
		Str("id", report.ID).
		Strs("symbols", symbols).
		Int("warnings", len(report.Warnings)).
		Msg("Comprehensive analysis generated")

	return report, nil
}

func (r *ComprehensiveAnalysis) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}
