package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates an active extraction task already exists
	// for the file. Surfaced to the caller, never retried automatically.
	ErrConflict = errors.New("active extraction task exists")

	// ErrInvalidQuery indicates an empty or malformed search query.
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrCircuitOpen indicates the extractor circuit breaker is open
	// and the call was rejected without contacting the service.
	ErrCircuitOpen = errors.New("extractor circuit open")

	// ErrTaskTerminal indicates an attempted transition on a task that
	// already reached a terminal state.
	ErrTaskTerminal = errors.New("task is in a terminal state")
)

// FailureKind classifies an extraction failure. The classification
// decides both retry handling and circuit breaker accounting.
type FailureKind string

const (
	// FailureConnection means the extraction service was unreachable.
	// Retryable; feeds the circuit breaker.
	FailureConnection FailureKind = "connection"

	// FailureTimeout means the extraction call exceeded its deadline.
	// Retryable; feeds the circuit breaker.
	FailureTimeout FailureKind = "timeout"

	// FailureUnprocessable means the document itself cannot be
	// extracted. Retryable up to the ceiling but never affects the
	// breaker: it is a property of the input, not of the service.
	FailureUnprocessable FailureKind = "unprocessable"
)

// ExtractionError is a classified failure from the extractor client.
type ExtractionError struct {
	// Kind is the failure classification.
	Kind FailureKind

	// Err is the underlying cause.
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s failure: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError wraps err with a failure classification.
func NewExtractionError(kind FailureKind, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Err: err}
}

// AffectsBreaker reports whether the error should count against the
// extraction service's health. Only connection and timeout failures
// do; unprocessable documents and circuit rejections do not.
func AffectsBreaker(err error) bool {
	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		return exErr.Kind == FailureConnection || exErr.Kind == FailureTimeout
	}
	return false
}

// IsUnprocessable reports whether the error is an input-specific
// extraction failure.
func IsUnprocessable(err error) bool {
	var exErr *ExtractionError
	return errors.As(err, &exErr) && exErr.Kind == FailureUnprocessable
}
