package derivatives

// OptionType distinguishes calls from puts
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ExerciseStyle distinguishes European from American exercise
type ExerciseStyle string

const (
	European ExerciseStyle = "european"
	American ExerciseStyle = "american"
)

// OptionSpec is a fully specified option contract for pricing
type OptionSpec struct {
	Spot          float64    `json:"spot"`
	Strike        float64    `json:"strike"`
	MaturityYears float64    `json:"maturity_years"`
	RiskFreeRate  float64    `json:"risk_free_rate"`
	Volatility    float64    `json:"volatility"`
	Type          OptionType `json:"option_type"`
}

// Greeks are the option price sensitivities. Theta is per day, vega
// per 1% volatility move and rho per 1% rate move, matching how
// practitioners quote them.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// BlackScholesResult is the analytical price with Greeks
type BlackScholesResult struct {
	Price  float64 `json:"price"`
	Greeks Greeks  `json:"greeks"`
	D1     float64 `json:"d1"`
	D2     float64 `json:"d2"`
}

// BinomialResult is a binomial lattice price with its calibration
type BinomialResult struct {
	Price  float64 `json:"price"`
	Steps  int     `json:"steps"`
	Up     float64 `json:"u"`
	Down   float64 `json:"d"`
	ProbUp float64 `json:"p"`
}

// TrinomialResult is a trinomial lattice price with its calibration
type TrinomialResult struct {
	Price    float64 `json:"price"`
	Steps    int     `json:"steps"`
	Up       float64 `json:"u"`
	Down     float64 `json:"d"`
	ProbUp   float64 `json:"pu"`
	ProbMid  float64 `json:"pm"`
	ProbDown float64 `json:"pd"`
}

// ModelPrice is one model's output in a comparison
type ModelPrice struct {
	Model string  `json:"model"`
	Price float64 `json:"price"`
	Steps int     `json:"steps,omitempty"`
}

// ModelComparison runs all models on identical inputs and reports the
// deviations of the lattice models from the analytical benchmark
type ModelComparison struct {
	BlackScholes ModelPrice         `json:"black_scholes"`
	Binomial     ModelPrice         `json:"binomial"`
	Trinomial    ModelPrice         `json:"trinomial"`
	Differences  map[string]float64 `json:"differences"`
	Convergence  map[string]string  `json:"convergence"`
}

// IterationRecord captures one Newton-Raphson step for auditability
type IterationRecord struct {
	Iteration int     `json:"iteration"`
	Sigma     float64 `json:"sigma"`
	Price     float64 `json:"price"`
	AbsDiff   float64 `json:"abs_diff"`
}

// ImpliedVolResult is the solver output. Non-convergence is reported
// here rather than as an error because the trail is still useful.
type ImpliedVolResult struct {
	ImpliedVolatility float64           `json:"implied_volatility"`
	Converged         bool              `json:"converged"`
	Iterations        []IterationRecord `json:"iterations"`
	FinalDifference   float64           `json:"final_difference"`
	NumIterations     int               `json:"num_iterations"`
}

// IVValidation re-prices at the solved volatility and reports the error
// against the original market price
type IVValidation struct {
	RecalculatedPrice  float64 `json:"recalculated_price"`
	MarketPrice        float64 `json:"market_price"`
	AbsoluteDifference float64 `json:"absolute_difference"`
	PercentageError    float64 `json:"percentage_error"`
	IsValid            bool    `json:"is_valid"`
}
