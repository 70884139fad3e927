package detector

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/veridoc/veridoc/internal/domain"
)

// Common errors returned by provider clients.
var (
	// ErrEmptyAPIKey indicates that an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyBaseURL indicates that no provider endpoint was configured.
	ErrEmptyBaseURL = errors.New("base URL cannot be empty")
)

// ProviderError represents a structured error from a scoring provider.
// It normalizes provider-specific failures into a common format carrying
// the failure classification the retry policy and diagnostics rely on.
type ProviderError struct {
	// Provider identifies the integration that produced the error.
	Provider string
	// Class is the failure classification.
	Class domain.FailureClass
	// StatusCode holds the HTTP status from the provider, if applicable.
	StatusCode int
	// Message contains the provider's error message.
	Message string
	// Attempts is the number of requests issued before giving up.
	// The retry middleware sets it; a bare provider leaves it at zero.
	Attempts int
	// WrappedError holds the underlying error for chaining.
	WrappedError error
}

// Error returns a string representation of the ProviderError.
func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error", e.Provider)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	base += fmt.Sprintf(" [%s]", e.Class)
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.WrappedError != nil {
		base += fmt.Sprintf(": %v", e.WrappedError)
	}
	return base
}

// Unwrap returns the underlying wrapped error.
func (e *ProviderError) Unwrap() error { return e.WrappedError }

// Retryable reports whether the failure is worth another attempt.
// Only availability failures (upstream unavailable, rate limit) and
// timeouts retry; data and validation failures fail fast because
// retrying cannot fix them.
func (e *ProviderError) Retryable() bool { return e.Class.Transient() }

// ErrorClassifier standardizes provider failures into ProviderError
// instances using HTTP status codes and transport error types.
type ErrorClassifier struct {
	// Provider is the integration name stamped onto classified errors.
	Provider string
}

// ClassifyHTTPStatus classifies a non-success HTTP response.
// Bad-gateway-class statuses and rate limits are retryable; every other
// status is terminal.
func (ec *ErrorClassifier) ClassifyHTTPStatus(statusCode int, message string) *ProviderError {
	class := domain.FailureTerminal
	switch statusCode {
	case 429, 502, 503, 504:
		class = domain.FailureRetryable
	case 408:
		class = domain.FailureTimeout
	}
	return &ProviderError{
		Provider:   ec.Provider,
		Class:      class,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ClassifyTransport classifies a network-level error. Only timeout-class
// errors are retryable; connection resets, DNS failures and the like are
// terminal.
func (ec *ErrorClassifier) ClassifyTransport(err error) *ProviderError {
	class := domain.FailureTerminal
	message := "transport error"

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		class = domain.FailureTimeout
		message = "request timed out"
	case errors.Is(err, context.Canceled):
		class = domain.FailureTimeout
		message = "request abandoned"
	case errors.As(err, &netErr) && netErr.Timeout():
		class = domain.FailureTimeout
		message = "request timed out"
	}

	return &ProviderError{
		Provider:     ec.Provider,
		Class:        class,
		Message:      message,
		WrappedError: err,
	}
}

// Malformed classifies an unparseable or contract-violating success body
// as terminal.
func (ec *ErrorClassifier) Malformed(message string, err error) *ProviderError {
	return &ProviderError{
		Provider:     ec.Provider,
		Class:        domain.FailureTerminal,
		Message:      message,
		WrappedError: err,
	}
}

// TimedOut classifies an exhausted job budget. It wraps
// domain.ErrJobTimedOut so callers can distinguish a still-pending job
// from one the provider failed.
func (ec *ErrorClassifier) TimedOut(message string) *ProviderError {
	return &ProviderError{
		Provider:     ec.Provider,
		Class:        domain.FailureTimeout,
		Message:      message,
		WrappedError: domain.ErrJobTimedOut,
	}
}
