package risk

// TailRisk is a single VaR or ES figure in dollars and as a percentage
// of the initial investment
type TailRisk struct {
	Value          float64 `json:"value"`
	Percentage     float64 `json:"percentage"`
	Interpretation string  `json:"interpretation,omitempty"`
}

// PercentileBand is one point of the terminal-value distribution
type PercentileBand struct {
	Percentile int     `json:"percentile"`
	Value      float64 `json:"value"`
	ReturnPct  float64 `json:"return_pct"`
}

// ScenarioStats summarizes the simulated outcome distribution.
// Best/worst cases are percentile bands rather than absolute extremes,
// which swing with simulation count.
type ScenarioStats struct {
	ExpectedValue     float64 `json:"expected_value"`
	MedianValue       float64 `json:"median_value"`
	PercentileBest    float64 `json:"percentile_best"`
	PercentileWorst   float64 `json:"percentile_worst"`
	ProbabilityOfLoss float64 `json:"probability_of_loss"`
}

// PortfolioStats holds the estimated portfolio return moments
type PortfolioStats struct {
	DailyMeanReturn      float64 `json:"daily_mean_return"`
	DailyStdDev          float64 `json:"daily_std_dev"`
	AnnualizedReturnPct  float64 `json:"annualized_return_pct"`
	AnnualizedVolatility float64 `json:"annualized_volatility_pct"`
}

// SimulationParams configures a Monte Carlo run. Zero values fall back
// to defaults; negative values are rejected.
type SimulationParams struct {
	// Allocation maps symbol -> weight. Nil means equal weight.
	// Custom weights must sum to 1.0 within a 0.01 tolerance.
	Allocation        map[string]float64 `json:"allocation,omitempty"`
	Simulations       int                `json:"simulations"`
	HorizonDays       int                `json:"horizon_days"`
	InitialInvestment float64            `json:"initial_investment"`
	ConfidenceLevels  []float64          `json:"confidence_levels"`
	// Seed fixes the RNG for reproducible runs; 0 derives one from the clock
	Seed uint64 `json:"seed,omitempty"`
	// IncludeStressTest adds a crisis-scenario comparison to the result
	IncludeStressTest bool          `json:"include_stress_test"`
	Stress            *StressParams `json:"stress,omitempty"`
}

// StressParams tunes the crisis scenario. Defaults are illustrative
// rather than calibrated to a specific historical crisis, so every
// knob is overridable.
type StressParams struct {
	// VolMultiplier scales historical volatility (default 3.0)
	VolMultiplier float64 `json:"vol_multiplier"`
	// StressCorrelation replaces pairwise correlations to model
	// correlation breakdown (default 0.95)
	StressCorrelation float64 `json:"stress_correlation"`
	// UseFatTails switches the stress draws to Student-t
	UseFatTails bool `json:"use_fat_tails"`
	// DegreesOfFreedom for the Student-t draws; lower is fatter (default 3)
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	// LiquidityHaircut is a fixed return penalty for crisis exit costs (default 0.02)
	LiquidityHaircut float64 `json:"liquidity_haircut"`
	// DownsideAmplification scales negative draws to capture the
	// leverage effect (default 1.2)
	DownsideAmplification float64 `json:"downside_amplification"`
}

// DefaultStressParams returns the standard crisis scenario
func DefaultStressParams() StressParams {
	return StressParams{
		VolMultiplier:         3.0,
		StressCorrelation:     0.95,
		UseFatTails:           true,
		DegreesOfFreedom:      3,
		LiquidityHaircut:      0.02,
		DownsideAmplification: 1.2,
	}
}

// MonteCarloResult is the full output of a simulation run
type MonteCarloResult struct {
	Symbols           []string            `json:"symbols"`
	Weights           map[string]float64  `json:"weights"`
	Simulations       int                 `json:"simulations"`
	HorizonDays       int                 `json:"horizon_days"`
	InitialInvestment float64             `json:"initial_investment"`
	VaR               map[string]TailRisk `json:"var_by_confidence"`
	ES                map[string]TailRisk `json:"es_by_confidence"`
	Scenario          ScenarioStats       `json:"scenario_stats"`
	Percentiles       []PercentileBand    `json:"distribution_percentiles"`
	Portfolio         PortfolioStats      `json:"portfolio_stats"`
	StressTest        *StressTestResult   `json:"stress_test,omitempty"`
}

// StressCase holds one side of the stress comparison
type StressCase struct {
	VaR               float64 `json:"var"`
	VaRPct            float64 `json:"var_pct"`
	ES                float64 `json:"es"`
	ESPct             float64 `json:"es_pct"`
	VaR99             float64 `json:"var_99,omitempty"`
	ES99              float64 `json:"es_99,omitempty"`
	AvgVolatilityPct  float64 `json:"avg_volatility_pct"`
	AvgCorrelation    float64 `json:"avg_correlation"`
	ProbabilityOfLoss float64 `json:"probability_of_loss"`
	Distribution      string  `json:"distribution"`
	Interpretation    string  `json:"interpretation"`
}

// StressImpact is the delta between base and stress cases
type StressImpact struct {
	VaRIncrease      float64 `json:"var_increase"`
	VaRIncreasePct   float64 `json:"var_increase_pct"`
	ESIncrease       float64 `json:"es_increase"`
	ESIncreasePct    float64 `json:"es_increase_pct"`
	ProbLossIncrease float64 `json:"prob_loss_increase"`
	Interpretation   string  `json:"interpretation"`
}

// StressTestResult compares normal conditions against a crisis scenario
type StressTestResult struct {
	Base   StressCase   `json:"base_case"`
	Stress StressCase   `json:"stress_case"`
	Impact StressImpact `json:"stress_impact"`
	Params StressParams `json:"parameters"`
}
