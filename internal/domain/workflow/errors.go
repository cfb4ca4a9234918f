package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrInvalidState is returned when a transition is attempted from the wrong
	// document or line status; the caller holds stale state and should refetch
	ErrInvalidState = errors.New("invalid state for requested transition")

	// ErrNotAuthorized is returned when the actor may not perform the transition
	ErrNotAuthorized = errors.New("actor not authorized for transition")

	// ErrConflict is returned when the optimistic concurrency check fails:
	// the document or line changed between read and write
	ErrConflict = errors.New("document modified concurrently")

	// ErrNotFound is returned when the referenced document, line or preset
	// does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is the root of all input validation failures
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a malformed input with field detail. It unwraps to
// ErrValidation so callers can match the whole class with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
