package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for classifying model invocation failures.

// UnavailableError indicates the requested model was not found or is not
// being served. It is the only failure class that walks the fallback chain.
type UnavailableError struct {
	Model string
	err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("model %s unavailable: %v", e.Model, e.err)
}

func (e *UnavailableError) Unwrap() error {
	return e.err
}

// NewUnavailableError wraps an error as a model-unavailable condition.
func NewUnavailableError(model string, err error) error {
	return &UnavailableError{Model: model, err: err}
}

// IsUnavailable returns true if the error is a model-unavailable condition.
func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}

// AuthError indicates the request was rejected for authentication or
// authorization reasons. Retrying or falling back would not help.
type AuthError struct {
	err error
}

func (e *AuthError) Error() string {
	return e.err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.err
}

// NewAuthError wraps an error as an authentication failure.
func NewAuthError(err error) error {
	return &AuthError{err: err}
}

// IsAuth returns true if the error is an authentication failure.
func IsAuth(err error) bool {
	var auth *AuthError
	return errors.As(err, &auth)
}

// TransientError represents a temporary error that may succeed on retry
// against the same endpoint (rate limiting, 5xx).
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// ExhaustedError is the aggregate failure raised when the fallback chain is
// walked to the end without a successful invocation. It names every model
// attempted.
type ExhaustedError struct {
	Models []string
	Last   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all models unavailable (tried %s): %v",
		strings.Join(e.Models, ", "), e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
