package risk

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/pkg/formulas"
)

// stressTest compares one-day tail risk under normal conditions against
// a crisis scenario: Student-t fat tails, volatility spiked by a
// multiplier, pairwise correlation forced toward 1, an asymmetric
// downside amplification, and a fixed liquidity haircut. Both cases
// share the same underlying normal draws so the comparison isolates the
// scenario assumptions from sampling noise.
func (e *MonteCarloEngine) stressTest(
	matrix *analytics.ReturnMatrix,
	weights []float64,
	mu []float64,
	stress StressParams,
	params SimulationParams,
	seed uint64,
) (*StressTestResult, error) {
	if err := validateStressParams(stress); err != nil {
		return nil, err
	}

	nAssets := matrix.NumAssets()
	sims := params.Simulations

	volBase := make([]float64, nAssets)
	for i, symbol := range matrix.Symbols {
		volBase[i] = formulas.StdDev(matrix.Columns[symbol])
	}

	rhoBase, corrBase := averageCorrelation(matrix)

	covBase := covarianceFrom(volBase, corrBase, nil)
	volStress := make([]float64, nAssets)
	for i, v := range volBase {
		volStress[i] = v * stress.VolMultiplier
	}
	covStress := covarianceFrom(volStress, nil, &stress.StressCorrelation)

	cholBase, err := factorize(covBase)
	if err != nil {
		return nil, err
	}
	cholStress, err := factorize(covStress)
	if err != nil {
		return nil, err
	}
	lowerBase := lowerTriangle(cholBase)
	lowerStress := lowerTriangle(cholStress)

	src := rand.NewSource(seed)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	chiSq := distuv.ChiSquared{K: stress.DegreesOfFreedom, Src: src}

	returnsBase := make([]float64, sims)
	returnsStress := make([]float64, sims)

	z := make([]float64, nAssets)
	epsBase := make([]float64, nAssets)
	epsStress := make([]float64, nAssets)
	for sim := 0; sim < sims; sim++ {
		for i := range z {
			z[i] = normal.Rand()
		}
		correlate(lowerBase, z, epsBase)
		correlate(lowerStress, z, epsStress)

		// Student-t via the chi-square mixture: Y = sqrt(df/W) * L*Z
		if stress.UseFatTails {
			scale := math.Sqrt(stress.DegreesOfFreedom / chiSq.Rand())
			for i := range epsStress {
				epsStress[i] *= scale
				if epsStress[i] < 0 {
					epsStress[i] *= stress.DownsideAmplification
				}
			}
		}

		var rBase, rStress float64
		for i, w := range weights {
			rBase += w * (mu[i] + epsBase[i])
			rStress += w * (mu[i] + epsStress[i])
		}
		returnsBase[sim] = rBase
		returnsStress[sim] = rStress - stress.LiquidityHaircut
	}

	pnlBase := toPnl(returnsBase, params.InitialInvestment)
	pnlStress := toPnl(returnsStress, params.InitialInvestment)
	sort.Float64s(pnlBase)
	sort.Float64s(pnlStress)

	conf := params.ConfidenceLevels[0]
	varBase, esBase := tailRisk(pnlBase, conf, params.InitialInvestment)
	varStress, esStress := tailRisk(pnlStress, conf, params.InitialInvestment)
	var99Stress, es99Stress := tailRisk(pnlStress, 0.99, params.InitialInvestment)

	probLossBase := lossFraction(returnsBase)
	probLossStress := lossFraction(returnsStress)

	distribution := "normal"
	if stress.UseFatTails {
		distribution = "student-t"
	}

	result := &StressTestResult{
		Base: StressCase{
			VaR:               varBase.Value,
			VaRPct:            varBase.Percentage,
			ES:                esBase.Value,
			ESPct:             esBase.Percentage,
			AvgVolatilityPct:  formulas.Mean(volBase) * 100,
			AvgCorrelation:    rhoBase,
			ProbabilityOfLoss: probLossBase,
			Distribution:      "normal",
			Interpretation: fmt.Sprintf(
				"Under normal conditions, with %.0f%% confidence, the one-day loss will not exceed $%.2f (%.2f%%)",
				conf*100, varBase.Value, varBase.Percentage),
		},
		Stress: StressCase{
			VaR:               varStress.Value,
			VaRPct:            varStress.Percentage,
			ES:                esStress.Value,
			ESPct:             esStress.Percentage,
			VaR99:             var99Stress.Value,
			ES99:              es99Stress.Value,
			AvgVolatilityPct:  formulas.Mean(volStress) * 100,
			AvgCorrelation:    stress.StressCorrelation,
			ProbabilityOfLoss: probLossStress,
			Distribution:      distribution,
			Interpretation: fmt.Sprintf(
				"Under crisis conditions (fat tails, %.1fx volatility, correlation %.2f, %.0f%% liquidity haircut), "+
					"with %.0f%% confidence the one-day loss will not exceed $%.2f (%.2f%%)",
				stress.VolMultiplier, stress.StressCorrelation, stress.LiquidityHaircut*100,
				conf*100, varStress.Value, varStress.Percentage),
		},
		Params: stress,
	}

	impact := StressImpact{
		VaRIncrease:      varStress.Value - varBase.Value,
		ESIncrease:       esStress.Value - esBase.Value,
		ProbLossIncrease: probLossStress - probLossBase,
	}
	if varBase.Value > 0 {
		impact.VaRIncreasePct = (varStress.Value/varBase.Value - 1) * 100
	}
	if esBase.Value > 0 {
		impact.ESIncreasePct = (esStress.Value/esBase.Value - 1) * 100
	}
	impact.Interpretation = fmt.Sprintf(
		"The crisis scenario increases one-day VaR by $%.2f (%.1f%% worse); extreme stress (99%% VaR) shows a $%.2f loss",
		impact.VaRIncrease, impact.VaRIncreasePct, var99Stress.Value)
	result.Impact = impact

	return result, nil
}

// averageCorrelation returns the mean off-diagonal correlation and the
// full correlation matrix of the history. Single-asset matrices get a
// zero correlation.
func averageCorrelation(matrix *analytics.ReturnMatrix) (float64, *mat.SymDense) {
	n := matrix.NumAssets()
	corr := mat.NewSymDense(n, nil)
	sum := 0.0
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1.0)
		for j := i + 1; j < n; j++ {
			c := stat.Correlation(matrix.Columns[matrix.Symbols[i]], matrix.Columns[matrix.Symbols[j]], nil)
			corr.SetSym(i, j, c)
			sum += c
		}
	}
	if n < 2 {
		return 0, corr
	}
	pairs := float64(n*(n-1)) / 2
	return sum / pairs, corr
}

// covarianceFrom builds a covariance matrix from per-asset vols and
// either a full correlation matrix or a single uniform correlation
func covarianceFrom(vols []float64, corr *mat.SymDense, uniformRho *float64) *mat.SymDense {
	n := len(vols)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, vols[i]*vols[i])
		for j := i + 1; j < n; j++ {
			rho := 0.0
			if uniformRho != nil {
				rho = *uniformRho
			} else if corr != nil {
				rho = corr.At(i, j)
			}
			cov.SetSym(i, j, rho*vols[i]*vols[j])
		}
	}
	return cov
}

// toPnl converts one-day returns into sorted-ready dollar PnL
func toPnl(returns []float64, initialInvestment float64) []float64 {
	pnl := make([]float64, len(returns))
	for i, r := range returns {
		pnl[i] = initialInvestment * r
	}
	return pnl
}

// lossFraction is the share of simulations with a negative return
func lossFraction(returns []float64) float64 {
	losses := 0
	for _, r := range returns {
		if r < 0 {
			losses++
		}
	}
	return float64(losses) / float64(len(returns))
}

// validateStressParams rejects out-of-domain crisis knobs
func validateStressParams(p StressParams) error {
	if p.VolMultiplier <= 0 {
		return fmt.Errorf("%w: volatility multiplier must be positive", ErrInvalidParameter)
	}
	if p.StressCorrelation < -1 || p.StressCorrelation > 1 {
		return fmt.Errorf("%w: stress correlation must be in [-1, 1]", ErrInvalidParameter)
	}
	if p.UseFatTails && p.DegreesOfFreedom <= 0 {
		return fmt.Errorf("%w: degrees of freedom must be positive", ErrInvalidParameter)
	}
	if p.LiquidityHaircut < 0 || p.LiquidityHaircut >= 1 {
		return fmt.Errorf("%w: liquidity haircut must be in [0, 1)", ErrInvalidParameter)
	}
	if p.DownsideAmplification < 1 {
		return fmt.Errorf("%w: downside amplification must be at least 1", ErrInvalidParameter)
	}
	return nil
}
