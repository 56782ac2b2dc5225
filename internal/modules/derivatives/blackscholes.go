// Package derivatives implements option pricing (Black-Scholes,
// binomial and trinomial lattices), an implied-volatility solver and
// volatility-surface construction.
package derivatives

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pricer prices options under multiple models
type Pricer struct {
	log zerolog.Logger
}

// NewPricer creates an options pricer
func NewPricer(log zerolog.Logger) *Pricer {
	return &Pricer{
		log: log.With().Str("component", "options_pricer").Logger(),
	}
}

// normCDF is the standard normal cumulative distribution function
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normPDF is the standard normal probability density function
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// validateSpec rejects out-of-domain pricing inputs
func validateSpec(spec OptionSpec) error {
	if spec.Spot <= 0 || spec.Strike <= 0 {
		return fmt.Errorf("%w: spot and strike prices must be positive", ErrInvalidParameter)
	}
	if spec.MaturityYears <= 0 {
		return fmt.Errorf("%w: time to maturity must be positive", ErrInvalidParameter)
	}
	if spec.Volatility <= 0 {
		return fmt.Errorf("%w: volatility must be positive", ErrInvalidParameter)
	}
	if spec.Type != Call && spec.Type != Put {
		return fmt.Errorf("%w: option type must be %q or %q", ErrInvalidParameter, Call, Put)
	}
	return nil
}

// d1d2 computes the standard Black-Scholes intermediates
func d1d2(spec OptionSpec) (float64, float64) {
	sqrtT := math.Sqrt(spec.MaturityYears)
	d1 := (math.Log(spec.Spot/spec.Strike) +
		(spec.RiskFreeRate+0.5*spec.Volatility*spec.Volatility)*spec.MaturityYears) /
		(spec.Volatility * sqrtT)
	d2 := d1 - spec.Volatility*sqrtT
	return d1, d2
}

// blackScholesPrice is the bare closed-form price, shared with the
// implied-volatility solver's inner loop
func blackScholesPrice(spec OptionSpec) float64 {
	d1, d2 := d1d2(spec)
	discountedStrike := spec.Strike * math.Exp(-spec.RiskFreeRate*spec.MaturityYears)

	if spec.Type == Put {
		return discountedStrike*normCDF(-d2) - spec.Spot*normCDF(-d1)
	}
	return spec.Spot*normCDF(d1) - discountedStrike*normCDF(d2)
}

// bsVega is dPrice/dSigma, the Newton-Raphson denominator
func bsVega(spec OptionSpec) float64 {
	d1, _ := d1d2(spec)
	return spec.Spot * math.Sqrt(spec.MaturityYears) * normPDF(d1)
}

// BlackScholes prices a European option in closed form and computes
// all five Greeks
func (p *Pricer) BlackScholes(spec OptionSpec) (*BlackScholesResult, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	d1, d2 := d1d2(spec)
	sqrtT := math.Sqrt(spec.MaturityYears)
	discountedStrike := spec.Strike * math.Exp(-spec.RiskFreeRate*spec.MaturityYears)

	var price, delta, theta, rho float64
	if spec.Type == Call {
		price = spec.Spot*normCDF(d1) - discountedStrike*normCDF(d2)
		delta = normCDF(d1)
		theta = -(spec.Spot*normPDF(d1)*spec.Volatility)/(2*sqrtT) -
			spec.RiskFreeRate*discountedStrike*normCDF(d2)
		rho = discountedStrike * spec.MaturityYears * normCDF(d2)
	} else {
		price = discountedStrike*normCDF(-d2) - spec.Spot*normCDF(-d1)
		delta = -normCDF(-d1)
		theta = -(spec.Spot*normPDF(d1)*spec.Volatility)/(2*sqrtT) +
			spec.RiskFreeRate*discountedStrike*normCDF(-d2)
		rho = -discountedStrike * spec.MaturityYears * normCDF(-d2)
	}

	gamma := normPDF(d1) / (spec.Spot * spec.Volatility * sqrtT)
	vega := spec.Spot * sqrtT * normPDF(d1)

	return &BlackScholesResult{
		Price: price,
		Greeks: Greeks{
			Delta: delta,
			Gamma: gamma,
			Theta: theta / 365, // per day
			Vega:  vega / 100,  // per 1% vol move
			Rho:   rho / 100,   // per 1% rate move
		},
		D1: d1,
		D2: d2,
	}, nil
}
