package derivatives

import (
	"fmt"
	"math"
)

// TrinomialTree prices an option on a three-branch recombining lattice.
// The middle branch roughly doubles the information captured per step
// versus the binomial tree at equal step count.
func (p *Pricer) TrinomialTree(spec OptionSpec, steps int, style ExerciseStyle) (*TrinomialResult, error) {
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

	h := spec.MaturityYears / float64(steps)
	discount := math.Exp(-spec.RiskFreeRate * h)

	u := math.Exp(spec.Volatility * math.Sqrt(2*h))
	d := 1 / u

	// Boyle calibration: probabilities can leave [0, 1] for poorly
	// matched volatility / step-size combinations
	expRh := math.Exp(spec.RiskFreeRate * h / 2)
	expUp := math.Exp(spec.Volatility * math.Sqrt(h/2))
	expDown := math.Exp(-spec.Volatility * math.Sqrt(h/2))

	pu := math.Pow((expRh-expDown)/(expUp-expDown), 2)
	pd := math.Pow((expRh-expUp)/(expUp-expDown), 2)
	pm := 1 - pu - pd

	if pu < 0 || pu > 1 || pd < 0 || pd > 1 || pm < 0 || pm > 1 {
		return nil, fmt.Errorf("%w: probabilities pu=%.4f pm=%.4f pd=%.4f outside [0, 1]",
			ErrInvalidTreeParameters, pu, pm, pd)
	}

	// Terminal option values over the 2N+1 price nodes, lowest first
	stock := trinomialStockVector(spec.Spot, steps, u, d)
	values := make([]float64, len(stock))
	for i, s := range stock {
		values[i] = payoff(spec.Type, s, spec.Strike)
	}

	for step := steps - 1; step >= 0; step-- {
		stock = trinomialStockVector(spec.Spot, step, u, d)
		next := make([]float64, len(stock))
		for j := range next {
			next[j] = discount * (values[j]*pd + values[j+1]*pm + values[j+2]*pu)

			if style == American {
				next[j] = math.Max(next[j], payoff(spec.Type, stock[j], spec.Strike))
			}
		}
		values = next
	}

	return &TrinomialResult{
		Price:    values[0],
		Steps:    steps,
		Up:       u,
		Down:     d,
		ProbUp:   pu,
		ProbMid:  pm,
		ProbDown: pd,
	}, nil
}

// trinomialStockVector lists the 2n+1 reachable prices after n steps,
// from the lowest node up
func trinomialStockVector(spot float64, n int, u, d float64) []float64 {
	prices := make([]float64, 2*n+1)
	for i := 0; i < n; i++ {
		prices[i] = spot * math.Pow(d, float64(n-i))
		prices[2*n-i] = spot * math.Pow(u, float64(n-i))
	}
	prices[n] = spot
	return prices
}
