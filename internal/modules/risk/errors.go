package risk

import "errors"

var (
	// ErrInvalidAllocation indicates portfolio weights that don't sum
	// to ~1.0 or reference unknown tickers
	ErrInvalidAllocation = errors.New("invalid allocation")

	// ErrInvalidParameter indicates an out-of-domain simulation input
	// (non-positive simulation count, horizon or investment)
	ErrInvalidParameter = errors.New("invalid parameter")
)
