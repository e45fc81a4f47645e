package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrFractionalYear = errors.New("year is not a whole number")
	ErrMissingField   = errors.New("missing required field")
	ErrNegativeValue  = errors.New("negative value")
	ErrYearOutOfRange = errors.New("year out of range")
	ErrUnknownStatus  = errors.New("unknown status")
	ErrDuplicateID    = errors.New("duplicate id")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
