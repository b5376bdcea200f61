// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Configuration errors. These are fatal at startup.
var (
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Embedding tier errors. Callers recover from these locally.
var (
	// ErrEmbeddingUnavailable indicates no embedding provider could serve the request.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbeddingDimension indicates a vector had an unexpected or zero dimension.
	ErrEmbeddingDimension = errors.New("embedding dimension mismatch")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Storage errors. These propagate out of document processing.
var (
	// ErrStorage indicates the unique-sentence archive write failed.
	ErrStorage = errors.New("storage failure")

	// ErrPersist indicates the corpus snapshot could not be saved.
	ErrPersist = errors.New("corpus persistence failure")

	// ErrCorruptSnapshot indicates a loaded snapshot violates cache invariants.
	ErrCorruptSnapshot = errors.New("corrupt corpus snapshot")

	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidID indicates an invalid identifier.
	ErrInvalidID = errors.New("invalid id")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
