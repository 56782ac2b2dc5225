package analytics

import "errors"

// Sentinel errors for input validation. Handlers match on these with
// errors.Is to pick the right HTTP status.
var (
	// ErrInsufficientData indicates too few observations for the
	// requested statistic (e.g. fewer than 2 prices for a return series)
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInsufficientAssets indicates too few tickers for a multi-asset
	// statistic (correlation and PCA need at least 2)
	ErrInsufficientAssets = errors.New("insufficient assets")

	// ErrDegenerateData indicates a zero-variance series that breaks
	// standardization or regression
	ErrDegenerateData = errors.New("degenerate data")
)
