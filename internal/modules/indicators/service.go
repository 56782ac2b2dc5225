package indicators

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/internal/modules/universe"
)

// TechnicalSnapshot bundles every indicator for one symbol. Indicators
// that lack enough history are nil rather than failing the snapshot.
type TechnicalSnapshot struct {
	Symbol         string           `json:"symbol"`
	AsOf           string           `json:"as_of"`
	Close          float64          `json:"close"`
	Bollinger      *BollingerResult `json:"bollinger,omitempty"`
	RSI            *RSIResult       `json:"rsi,omitempty"`
	MovingAverages *MovingAverages  `json:"moving_averages,omitempty"`
	RiskAdjusted   *RiskAdjusted    `json:"risk_adjusted,omitempty"`
}

// Service wires the indicator engine to the historical price store
type Service struct {
	historyDB    *universe.HistoryDB
	engine       *Engine
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates the indicators service. riskFreeRate is the
// annualized rate used by the Sharpe and Sortino ratios.
func NewService(historyDB *universe.HistoryDB, riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		historyDB:    historyDB,
		engine:       NewEngine(log),
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "indicators").Logger(),
	}
}

// Snapshot computes all indicators for a symbol over the lookback
// window. Individual indicators degrade to nil when the history is too
// short for their period; only an empty price series is an error.
func (s *Service) Snapshot(symbol string, lookbackDays int) (*TechnicalSnapshot, error) {
	if lookbackDays <= 0 {
		lookbackDays = analytics.DefaultLookbackDays
	}
	prices, err := s.historyDB.GetDailyPrices(symbol, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no price history for %s", analytics.ErrInsufficientData, symbol)
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}

	snapshot := &TechnicalSnapshot{
		Symbol: symbol,
		AsOf:   prices[len(prices)-1].Date,
		Close:  closes[len(closes)-1],
	}

	if bands, err := s.engine.Bollinger(closes, DefaultBollingerPeriod, DefaultBollingerStdDev); err == nil {
		snapshot.Bollinger = bands
	} else {
		s.logSkip(symbol, "bollinger", err)
	}
	if rsi, err := s.engine.RSI(closes, DefaultRSIPeriod); err == nil {
		snapshot.RSI = rsi
	} else {
		s.logSkip(symbol, "rsi", err)
	}
	if mas, err := s.engine.Averages(closes); err == nil {
		snapshot.MovingAverages = mas
	} else {
		s.logSkip(symbol, "moving_averages", err)
	}
	if ratios, err := s.engine.RiskRatios(closes, s.riskFreeRate); err == nil {
		snapshot.RiskAdjusted = ratios
	} else {
		s.logSkip(symbol, "risk_ratios", err)
	}

	return snapshot, nil
}

// Bollinger computes Bollinger bands for a symbol with explicit parameters
func (s *Service) Bollinger(symbol string, period int, stdDevMult float64, lookbackDays int) (*BollingerResult, error) {
	closes, err := s.closesFor(symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	return s.engine.Bollinger(closes, period, stdDevMult)
}

// RSI computes the relative strength index for a symbol
func (s *Service) RSI(symbol string, period, lookbackDays int) (*RSIResult, error) {
	closes, err := s.closesFor(symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	return s.engine.RSI(closes, period)
}

func (s *Service) closesFor(symbol string, lookbackDays int) ([]float64, error) {
	if lookbackDays <= 0 {
		lookbackDays = analytics.DefaultLookbackDays
	}
	prices, err := s.historyDB.GetDailyPrices(symbol, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices for %s: %w", symbol, err)
	}
	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	return closes, nil
}

// logSkip records an indicator that could not be computed. Short
// histories are normal and logged at debug; anything else is a warning.
func (s *Service) logSkip(symbol, name string, err error) {
	event := s.log.Warn()
	if errors.Is(err, analytics.ErrInsufficientData) || errors.Is(err, analytics.ErrDegenerateData) {
		event = s.log.Debug()
	}
	event.Str("symbol", symbol).Str("indicator", name).Err(err).Msg("Skipping indicator")
}
