// Package indicators computes technical indicators over daily closing
// prices: Bollinger bands, RSI, moving averages with MACD, and
// risk-adjusted return ratios. Each indicator carries a human-readable
// signal alongside the raw numbers.
package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/pkg/formulas"
)

// Default indicator periods
const (
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
	DefaultRSIPeriod       = 14

	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9

	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

var (
	smaWindows = []int{10, 20, 50, 100, 200}
	emaWindows = []int{12, 26, 50, 200}
)

// Signal values attached to indicator results
const (
	SignalOverbought = "Overbought"
	SignalOversold   = "Oversold"
	SignalNeutral    = "Neutral"
)

// BollingerResult holds the current Bollinger band values
type BollingerResult struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	WidthPct float64 `json:"width_pct"`
	PercentB float64 `json:"percent_b"`
	Signal   string  `json:"signal"`
}

// RSIResult holds the current relative strength index
type RSIResult struct {
	Value  float64 `json:"value"`
	Period int     `json:"period"`
	Signal string  `json:"signal"`
}

// MACDResult holds the current MACD line, signal line and histogram
type MACDResult struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     string  `json:"trend"`
}

// MovingAverages holds simple and exponential moving averages keyed by
// window size ("MA50", "EMA26") plus crossover signals per SMA window
type MovingAverages struct {
	SMA          map[string]float64 `json:"sma"`
	EMA          map[string]float64 `json:"ema"`
	Signals      map[string]string  `json:"signals"`
	MACD         *MACDResult        `json:"macd,omitempty"`
	CurrentPrice float64            `json:"current_price"`
}

// RiskAdjusted holds annualized risk-adjusted return ratios
type RiskAdjusted struct {
	SharpeRatio           float64 `json:"sharpe_ratio"`
	SharpeInterpretation  string  `json:"sharpe_interpretation"`
	SortinoRatio          float64 `json:"sortino_ratio"`
	SortinoInterpretation string  `json:"sortino_interpretation"`
	AnnualizedVolatility  float64 `json:"annualized_volatility"`
}

// Engine computes technical indicators from closing-price series
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an indicator engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "indicators").Logger()}
}

// Bollinger computes the current Bollinger bands over closes. The price
// position is reported as %B: 0 at the lower band, 100 at the upper.
func (e *Engine) Bollinger(closes []float64, period int, stdDevMult float64) (*BollingerResult, error) {
	if period <= 0 {
		period = DefaultBollingerPeriod
	}
	if stdDevMult <= 0 {
		stdDevMult = DefaultBollingerStdDev
	}
	if len(closes) < period {
		return nil, fmt.Errorf("%w: bollinger bands need %d closes, got %d",
			analytics.ErrInsufficientData, period, len(closes))
	}

	// MAType 0 selects the simple moving average for the middle band
	upper, middle, lower := talib.BBands(closes, period, stdDevMult, stdDevMult, 0)
	u, m, l := last(upper), last(middle), last(lower)
	if math.IsNaN(u) || m == 0 {
		return nil, fmt.Errorf("%w: bollinger bands produced no valid values",
			analytics.ErrDegenerateData)
	}

	close := closes[len(closes)-1]
	percentB := 50.0
	if u != l {
		percentB = (close - l) / (u - l) * 100
	}

	signal := SignalNeutral
	if close > u {
		signal = SignalOverbought
	} else if close < l {
		signal = SignalOversold
	}

	return &BollingerResult{
		Upper:    u,
		Middle:   m,
		Lower:    l,
		WidthPct: (u - l) / m * 100,
		PercentB: percentB,
		Signal:   signal,
	}, nil
}

// RSI computes the current relative strength index over closes
func (e *Engine) RSI(closes []float64, period int) (*RSIResult, error) {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("%w: RSI needs %d closes, got %d",
			analytics.ErrInsufficientData, period+1, len(closes))
	}

	values := talib.Rsi(closes, period)
	v := last(values)
	if math.IsNaN(v) {
		return nil, fmt.Errorf("%w: RSI produced no valid values", analytics.ErrDegenerateData)
	}

	signal := SignalNeutral
	if v > rsiOverbought {
		signal = SignalOverbought
	} else if v < rsiOversold {
		signal = SignalOversold
	}

	return &RSIResult{Value: v, Period: period, Signal: signal}, nil
}

// Averages computes the standard SMA/EMA ladder plus MACD, skipping
// windows longer than the available history
func (e *Engine) Averages(closes []float64) (*MovingAverages, error) {
	if len(closes) < smaWindows[0] {
		return nil, fmt.Errorf("%w: moving averages need %d closes, got %d",
			analytics.ErrInsufficientData, smaWindows[0], len(closes))
	}

	close := closes[len(closes)-1]
	result := &MovingAverages{
		SMA:          make(map[string]float64),
		EMA:          make(map[string]float64),
		Signals:      make(map[string]string),
		CurrentPrice: close,
	}

	for _, window := range smaWindows {
		if len(closes) < window {
			continue
		}
		key := fmt.Sprintf("MA%d", window)
		value := last(talib.Sma(closes, window))
		if math.IsNaN(value) {
			continue
		}
		result.SMA[key] = value
		if close > value {
			result.Signals[key] = "Bullish (Price > MA)"
		} else {
			result.Signals[key] = "Bearish (Price < MA)"
		}
	}

	for _, window := range emaWindows {
		if len(closes) < window {
			continue
		}
		value := last(talib.Ema(closes, window))
		if !math.IsNaN(value) {
			result.EMA[fmt.Sprintf("EMA%d", window)] = value
		}
	}

	if len(closes) >= macdSlowPeriod+macdSignalPeriod {
		macd, signal, hist := talib.Macd(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
		line, sig, h := last(macd), last(signal), last(hist)
		if !math.IsNaN(line) && !math.IsNaN(sig) {
			trend := "Bearish"
			if h > 0 {
				trend = "Bullish"
			}
			result.MACD = &MACDResult{Line: line, Signal: sig, Histogram: h, Trend: trend}
		}
	}

	return result, nil
}

// RiskRatios computes annualized Sharpe and Sortino ratios from closing
// prices, with interpretation strings
func (e *Engine) RiskRatios(closes []float64, riskFreeRate float64) (*RiskAdjusted, error) {
	returns := formulas.SimpleReturns(closes)
	if len(returns) < 2 {
		return nil, fmt.Errorf("%w: risk ratios need at least 3 closes, got %d",
			analytics.ErrInsufficientData, len(closes))
	}

	sharpe := formulas.SharpeRatio(returns, riskFreeRate)
	sortino := formulas.SortinoRatio(returns, riskFreeRate)

	return &RiskAdjusted{
		SharpeRatio:           sharpe,
		SharpeInterpretation:  interpretRiskRatio(sharpe),
		SortinoRatio:          sortino,
		SortinoInterpretation: interpretRiskRatio(sortino),
		AnnualizedVolatility:  formulas.AnnualizedVolatility(returns),
	}, nil
}

// interpretRiskRatio grades a Sharpe or Sortino ratio. The two share
// the same scale since both are excess return over a risk denominator.
func interpretRiskRatio(ratio float64) string {
	switch {
	case ratio < 0:
		return "Poor - Negative returns relative to risk-free rate"
	case ratio < 0.5:
		return "Poor - Suboptimal risk-adjusted returns"
	case ratio < 1.0:
		return "Below Average - Low risk-adjusted returns"
	case ratio < 1.5:
		return "Average - Acceptable risk-adjusted returns"
	case ratio < 2.0:
		return "Good - Strong risk-adjusted returns"
	case ratio < 3.0:
		return "Very Good - Excellent risk-adjusted returns"
	default:
		return "Exceptional - Outstanding risk-adjusted returns"
	}
}

// last returns the final element of a talib output series, or NaN when
// the series is empty
func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
