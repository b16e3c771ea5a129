package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrValidation           = errors.New("validation failed")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrCancelled            = errors.New("operation not performed")
	ErrDeserialization      = errors.New("stored data is corrupt")
	ErrForbidden            = errors.New("admin role required")
)

// ValidationError describes why an imported payload was rejected.
type ValidationError struct {
	Kind   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(kind string, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// DeserializationError is recorded when a stored blob cannot be decoded.
// Loaders recover from it by resetting to an empty collection.
type DeserializationError struct {
	Key string
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return ErrDeserialization
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfirmationRequired) ||
		errors.Is(err, ErrCancelled)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
