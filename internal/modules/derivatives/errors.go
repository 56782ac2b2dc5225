package derivatives

import "errors"

var (
	// ErrInvalidParameter indicates an out-of-domain pricing input
	// (non-positive spot, strike, maturity or volatility)
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidTreeParameters indicates a lattice calibration whose
	// risk-neutral probabilities fall outside [0, 1]
	ErrInvalidTreeParameters = errors.New("invalid tree parameters")
)
