package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from daily returns.
// riskFreeRate is the annualized risk-free rate (e.g. 0.05 for 5%).
func SharpeRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}

	dailyRf := riskFreeRate / TradingDaysPerYear
	excess := make([]float64, len(dailyReturns))
	for i, r := range dailyReturns {
		excess[i] = r - dailyRf
	}

	sd := StdDev(excess)
	if sd == 0 {
		return 0
	}
	return Mean(excess) / sd * math.Sqrt(TradingDaysPerYear)
}

// SortinoRatio calculates the annualized Sortino ratio from daily returns,
// penalizing only downside deviation below the risk-free rate.
func SortinoRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}

	dailyRf := riskFreeRate / TradingDaysPerYear
	meanExcess := 0.0
	downsideSq := 0.0
	downsideCount := 0
	for _, r := range dailyReturns {
		e := r - dailyRf
		meanExcess += e
		if e < 0 {
			downsideSq += e * e
			downsideCount++
		}
	}
	meanExcess /= float64(len(dailyReturns))

	if downsideCount == 0 {
		return 0
	}
	downsideDev := math.Sqrt(downsideSq / float64(len(dailyReturns)))
	if downsideDev == 0 {
		return 0
	}
	return meanExcess / downsideDev * math.Sqrt(TradingDaysPerYear)
}
