package derivatives

import (
	"fmt"
	"math"
)

// Practical lattice step bounds. Error shrinks as O(1/N); N=100 is
// within a cent of Black-Scholes for typical parameters.
const (
	MinLatticeSteps     = 1
	MaxLatticeSteps     = 10000
	DefaultLatticeSteps = 100
)

func validateSteps(steps int) error {
	if steps < MinLatticeSteps || steps > MaxLatticeSteps {
		return fmt.Errorf("%w: steps must be between %d and %d, got %d",
			ErrInvalidParameter, MinLatticeSteps, MaxLatticeSteps, steps)
	}
	return nil
}

func validateStyle(style ExerciseStyle) error {
	if style != European && style != American {
		return fmt.Errorf("%w: exercise style must be %q or %q",
			ErrInvalidParameter, European, American)
	}
	return nil
}

// payoff is the exercise value at a given stock price
func payoff(optionType OptionType, stockPrice, strike float64) float64 {
	if optionType == Put {
		return math.Max(strike-stockPrice, 0)
	}
	return math.Max(stockPrice-strike, 0)
}

// BinomialTree prices an option on a Cox-Ross-Rubinstein recombining
// lattice with backward induction. American style checks early
// exercise at every node.
func (p *Pricer) BinomialTree(spec OptionSpec, steps int, style ExerciseStyle) (*BinomialResult, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	if steps == 0 {
		steps = DefaultLatticeSteps
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}
	if err := validateStyle(style); err != nil {
		return nil, err
	}

	dt := spec.MaturityYears / float64(steps)
	u := math.Exp(spec.Volatility * math.Sqrt(dt))
	d := 1 / u
	prob := (math.Exp(spec.RiskFreeRate*dt) - d) / (u - d)

	if prob < 0 || prob > 1 {
		return nil, fmt.Errorf("%w: risk-neutral probability %.4f outside [0, 1]",
			ErrInvalidTreeParameters, prob)
	}

	discount := math.Exp(-spec.RiskFreeRate * dt)

	// Terminal option values; index 0 is the highest node
	values := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		stockPrice := spec.Spot * math.Pow(u, float64(steps-i)) * math.Pow(d, float64(i))
		values[i] = payoff(spec.Type, stockPrice, spec.Strike)
	}

	for j := steps - 1; j >= 0; j-- {
		for i := 0; i <= j; i++ {
			values[i] = discount * (prob*values[i] + (1-prob)*values[i+1])

			if style == American {
				stockPrice := spec.Spot * math.Pow(u, float64(j-i)) * math.Pow(d, float64(i))
				values[i] = math.Max(values[i], payoff(spec.Type, stockPrice, spec.Strike))
			}
		}
	}

	return &BinomialResult{
		Price:  values[0],
		Steps:  steps,
		Up:     u,
		Down:   d,
		ProbUp: prob,
	}, nil
}
