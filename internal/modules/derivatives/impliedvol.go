package derivatives

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Newton-Raphson solver defaults and bounds
const (
	DefaultSigmaInit     = 0.3
	DefaultIVTolerance   = 0.0001
	DefaultMaxIterations = 100

	// Sigma is clamped to a sane range to prevent divergence
	minSigma = 0.01
	maxSigma = 5.0

	// Below this vega the update step blows up (deep ITM/OTM)
	minVega = 1e-10

	// Re-pricing error above 0.1% of the market price marks the solve
	// as practically meaningless despite numeric convergence. Compared
	// against PercentageError, which is already in percent.
	validationErrorPct = 0.1
)

// IVSolver recovers implied volatility from observed market prices via
// Newton-Raphson on the Black-Scholes price
type IVSolver struct {
	SigmaInit     float64
	Tolerance     float64
	MaxIterations int
	log           zerolog.Logger
}

// NewIVSolver creates a solver with the default starting guess,
// tolerance and iteration cap
func NewIVSolver(log zerolog.Logger) *IVSolver {
	return &IVSolver{
		SigmaInit:     DefaultSigmaInit,
		Tolerance:     DefaultIVTolerance,
		MaxIterations: DefaultMaxIterations,
		log:           log.With().Str("component", "iv_solver").Logger(),
	}
}

// Solve inverts the Black-Scholes model for the volatility that
// reproduces marketPrice. spec.Volatility is ignored. Non-convergence
// is reported on the result, not as an error, because the iteration
// trail remains useful for diagnosis.
func (s *IVSolver) Solve(marketPrice float64, spec OptionSpec) (*ImpliedVolResult, error) {
	if marketPrice <= 0 {
		return nil, fmt.Errorf("%w: market price must be positive", ErrInvalidParameter)
	}
	if spec.Spot <= 0 || spec.Strike <= 0 {
		return nil, fmt.Errorf("%w: spot and strike prices must be positive", ErrInvalidParameter)
	}
	if spec.MaturityYears <= 0 {
		return nil, fmt.Errorf("%w: time to maturity must be positive", ErrInvalidParameter)
	}
	if spec.Type != Call && spec.Type != Put {
		return nil, fmt.Errorf("%w: option type must be %q or %q", ErrInvalidParameter, Call, Put)
	}

	intrinsic := payoff(spec.Type, spec.Spot, spec.Strike)
	if marketPrice < intrinsic {
		return nil, fmt.Errorf("%w: market price %.4f is below intrinsic value %.4f",
			ErrInvalidParameter, marketPrice, intrinsic)
	}

	sigma := s.SigmaInit
	iterations := make([]IterationRecord, 0, s.MaxIterations)
	diff := math.Inf(1)

	for i := 0; i < s.MaxIterations; i++ {
		spec.Volatility = sigma
		price := blackScholesPrice(spec)
		diff = price - marketPrice

		iterations = append(iterations, IterationRecord{
			Iteration: i + 1,
			Sigma:     sigma,
			Price:     price,
			AbsDiff:   math.Abs(diff),
		})

		if math.Abs(diff) < s.Tolerance {
			return &ImpliedVolResult{
				ImpliedVolatility: sigma,
				Converged:         true,
				Iterations:        iterations,
				FinalDifference:   diff,
				NumIterations:     i + 1,
			}, nil
		}

		vega := bsVega(spec)
		if math.Abs(vega) < minVega {
			// Vega collapse: the update step is numerically meaningless
			s.log.Debug().
				Float64("sigma", sigma).
				Float64("strike", spec.Strike).
				Msg("Vega too small, stopping iteration")
			break
		}

		sigma -= diff / vega
		if sigma <= 0 {
			sigma = minSigma
		}
		if sigma > maxSigma {
			sigma = maxSigma
		}
	}

	return &ImpliedVolResult{
		ImpliedVolatility: sigma,
		Converged:         false,
		Iterations:        iterations,
		FinalDifference:   diff,
		NumIterations:     len(iterations),
	}, nil
}

// Validate re-prices at the solved volatility and reports the error
// against the original market price. Converged solves in vega-dead
// regions can still fail this check.
func (s *IVSolver) Validate(impliedVol, marketPrice float64, spec OptionSpec) IVValidation {
	spec.Volatility = impliedVol
	price := blackScholesPrice(spec)
	diff := math.Abs(price - marketPrice)

	pctError := 0.0
	if marketPrice > 0 {
		pctError = diff / marketPrice * 100
	}

	return IVValidation{
		RecalculatedPrice:  price,
		MarketPrice:        marketPrice,
		AbsoluteDifference: diff,
		PercentageError:    pctError,
		IsValid:            pctError < validationErrorPct,
	}
}
