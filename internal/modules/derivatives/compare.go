package derivatives

import "math"

// Convergence verdicts for lattice prices against the analytical benchmark
const (
	convergenceExcellent = "excellent" // within $0.01
	convergenceGood      = "good"      // within $0.05
	convergencePoor      = "poor"
)

func convergenceVerdict(diff float64) string {
	switch {
	case diff < 0.01:
		return convergenceExcellent
	case diff < 0.05:
		return convergenceGood
	default:
		return convergencePoor
	}
}

// CompareModels prices the same European option under all three models
// and reports the lattice deviations from Black-Scholes
func (p *Pricer) CompareModels(spec OptionSpec, steps int) (*ModelComparison, error) {
	bs, err := p.BlackScholes(spec)
	if err != nil {
		return nil, err
	}
	binomial, err := p.BinomialTree(spec, steps, European)
	if err != nil {
		return nil, err
	}
	trinomial, err := p.TrinomialTree(spec, steps, European)
	if err != nil {
		return nil, err
	}

	binomialDiff := math.Abs(binomial.Price - bs.Price)
	trinomialDiff := math.Abs(trinomial.Price - bs.Price)

	return &ModelComparison{
		BlackScholes: ModelPrice{Model: "Black-Scholes", Price: bs.Price},
		Binomial:     ModelPrice{Model: "Binomial Tree", Price: binomial.Price, Steps: binomial.Steps},
		Trinomial:    ModelPrice{Model: "Trinomial Tree", Price: trinomial.Price, Steps: trinomial.Steps},
		Differences: map[string]float64{
			"binomial_vs_bs":        binomialDiff,
			"trinomial_vs_bs":       trinomialDiff,
			"binomial_vs_trinomial": math.Abs(binomial.Price - trinomial.Price),
		},
		Convergence: map[string]string{
			"binomial":  convergenceVerdict(binomialDiff),
			"trinomial": convergenceVerdict(trinomialDiff),
		},
	}, nil
}
