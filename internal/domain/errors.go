package domain

import "errors"

// Sentinel errors for the portfolio core. Callers match them with errors.Is;
// wrapping sites add field/ticker context with fmt.Errorf and %w.
var (
	// ErrMalformedPortfolio indicates persisted portfolio data that fails
	// schema validation (missing required field, wrong type).
	ErrMalformedPortfolio = errors.New("malformed portfolio")

	// ErrUnknownTicker indicates a trade instruction referencing an asset
	// that is not present in the portfolio.
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrInvalidPrice indicates a trade instruction with a non-positive price.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrNoBackup indicates a rollback attempt with an empty backup history.
	ErrNoBackup = errors.New("no backup available")
)
