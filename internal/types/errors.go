package types

import "errors"

// Error classes shared by every package. Callers test for them with errors.Is;
// the wrapped message names the offending key, value or type.
var (
	// ErrUsage is returned when an argument has an unsupported shape.
	ErrUsage = errors.New("usage error")

	// ErrLookup is returned when a required key or field is absent.
	ErrLookup = errors.New("lookup error")

	// ErrValidation is returned when a structural invariant does not hold.
	ErrValidation = errors.New("validation error")
)
