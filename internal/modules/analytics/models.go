package analytics

// RegressionResult holds OLS regression statistics for an asset
// regressed against a benchmark
type RegressionResult struct {
	Symbol           string  `json:"symbol"`
	Benchmark        string  `json:"benchmark"`
	Beta             float64 `json:"beta"`
	AlphaDaily       float64 `json:"alpha_daily"`
	AlphaAnnualized  float64 `json:"alpha_annualized"`
	RSquared         float64 `json:"r_squared"`
	Correlation      float64 `json:"correlation"`
	InformationRatio float64 `json:"information_ratio"`
	Observations     int     `json:"observations"`
	// LowSampleWarning is set when fewer than 30 observations were
	// available; the regression still runs but estimates are noisy
	LowSampleWarning bool   `json:"low_sample_warning,omitempty"`
	Interpretation   string `json:"interpretation"`
}

// CorrelationPair is a single ticker pair with its correlation
type CorrelationPair struct {
	Symbol1     string  `json:"symbol1"`
	Symbol2     string  `json:"symbol2"`
	Correlation float64 `json:"correlation"`
}

// CorrelationResult holds a pairwise correlation matrix and derived
// diversification statistics
type CorrelationResult struct {
	Method               string                        `json:"method"`
	Symbols              []string                      `json:"symbols"`
	Matrix               map[string]map[string]float64 `json:"matrix"`
	AverageCorrelation   float64                       `json:"average_correlation"`
	DiversificationScore float64                       `json:"diversification_score"`
	HighCorrelationPairs []CorrelationPair             `json:"high_correlation_pairs"`
	NegativePairs        []CorrelationPair             `json:"negative_pairs"`
	Observations         int                           `json:"observations"`
	Interpretation       string                        `json:"interpretation"`
}

// PCAComponent is a single principal component with its loadings
type PCAComponent struct {
	Component          int                `json:"component"`
	Eigenvalue         float64            `json:"eigenvalue"`
	ExplainedVariance  float64            `json:"explained_variance_ratio"`
	CumulativeVariance float64            `json:"cumulative_variance"`
	Loadings           map[string]float64 `json:"loadings"`
}

// PCAResult holds the eigendecomposition of the standardized return matrix
type PCAResult struct {
	Symbols             []string       `json:"symbols"`
	Components          []PCAComponent `json:"components"`
	NComponentsFor90Pct int            `json:"n_components_for_90pct"`
	NComponentsFor95Pct int            `json:"n_components_for_95pct"`
	Observations        int            `json:"observations"`
	Interpretation      string         `json:"interpretation"`
}
