package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions.
// Missing or thin data is never an error; these cover malformed shapes only.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidSeries   = fmt.Errorf("%w: interval series", ErrInvalidInput)
	ErrInvalidTimezone = fmt.Errorf("%w: timezone", ErrInvalidInput)
	ErrInvalidBills    = fmt.Errorf("%w: billing rows", ErrInvalidInput)
	ErrInvalidPack     = fmt.Errorf("%w: decision pack", ErrInvalidInput)
	ErrInvalidArtifact = fmt.Errorf("%w: stored artifact", ErrInvalidInput)

	ErrInvalidRegistry = errors.New("invalid scenario registry")
	ErrMissingTime     = errors.New("generation timestamp is required")
)

// NewValidationError reports a malformed field.
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// IsValidationError reports whether err stems from a malformed input shape.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
