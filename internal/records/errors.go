package records

import (
	"errors"
	"fmt"
)

var (
	// ErrSetupIncomplete means the user has no fixed configuration yet.
	// It is distinct from a configuration with zero income.
	ErrSetupIncomplete = errors.New("setup not completed")
	ErrValidation      = errors.New("validation failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrNotFound        = errors.New("not found")
)

// Invalid wraps a field-level validation error so that both errors.Is(err,
// ErrValidation) and errors.Is(err, cause) hold.
func Invalid(cause error) error {
	return fmt.Errorf("%w: %w", ErrValidation, cause)
}

// Persistence wraps a storage failure.
func Persistence(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, cause)
}
