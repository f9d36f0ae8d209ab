package domain

import "errors"

// Sentinel errors shared across the analysis packages. Callers distinguish
// insufficient-data conditions from validation failures with errors.Is.
var (
	// ErrInsufficientData indicates a sample too small for the requested
	// computation (for example investment analysis on fewer than 3
	// qualifying deals). It is a distinct condition, not a numeric default.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidInput indicates malformed caller input such as reversed
	// filter bounds or a non-numeric amount field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoResults indicates the registry returned no match for a query
	ErrNoResults = errors.New("no results")
)

// IsInsufficientData reports whether err wraps ErrInsufficientData
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
