package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers as hard failures. Everything else
// degrades to a partial AggregateResult with attached diagnostics.
var (
	// ErrInputTooShort indicates the document was below the minimum
	// length and was rejected before any network call.
	ErrInputTooShort = errors.New("document below minimum input length")

	// ErrUnsupportedLanguage indicates the document declared a language
	// the configured provider cannot score.
	ErrUnsupportedLanguage = errors.New("unsupported document language")

	// ErrJobTimedOut indicates an asynchronous scoring job exhausted its
	// poll or wall-clock budget while still pending. The job may still
	// complete later out-of-band, so this is distinct from a provider
	// reporting failure.
	ErrJobTimedOut = errors.New("scoring job timed out while pending")

	// ErrNoUsableResult indicates a provider reported a job completed but
	// the response carried no score payload.
	ErrNoUsableResult = errors.New("job completed but returned no usable result")
)

// FailureClass categorizes a chunk-level failure. The class decides both
// the retry policy (only transient failures consume retry budget) and the
// message synthesized when every chunk fails.
type FailureClass int

const (
	// FailureUnknown is a failure of undetermined category.
	FailureUnknown FailureClass = iota
	// FailureRetryable is a likely-transient failure: an
	// upstream-unavailable status or a rate limit.
	FailureRetryable
	// FailureTerminal is a failure retrying cannot fix: a malformed
	// response, an explicit in-band error, or a non-retryable status.
	FailureTerminal
	// FailureTimeout is a request or job deadline expiry.
	FailureTimeout
)

// String returns a human-readable class name.
func (c FailureClass) String() string {
	switch c {
	case FailureRetryable:
		return "retryable"
	case FailureTerminal:
		return "terminal"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Transient reports whether a failure of this class is worth retrying.
func (c FailureClass) Transient() bool {
	return c == FailureRetryable || c == FailureTimeout
}

// ChunkError records the failure of a single chunk after its retry budget
// was spent. Chunk errors are accumulated for diagnostics even when other
// chunks succeed.
type ChunkError struct {
	// Index identifies the failed chunk.
	Index int `json:"index"`

	// StatusCode holds the HTTP status from the provider, if any.
	StatusCode int `json:"status_code,omitempty"`

	// Class categorizes the failure.
	Class FailureClass `json:"class"`

	// Message is the provider or transport error message.
	Message string `json:"message"`

	// Attempts is the number of requests issued for this chunk.
	Attempts int `json:"attempts"`
}

// Error implements the error interface.
func (e *ChunkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("chunk %d: %s failure (HTTP %d) after %d attempts: %s",
			e.Index, e.Class, e.StatusCode, e.Attempts, e.Message)
	}
	return fmt.Sprintf("chunk %d: %s failure after %d attempts: %s",
		e.Index, e.Class, e.Attempts, e.Message)
}

// InputError reports a document rejected before any network call,
// for example because it is too short or declares an unsupported language.
type InputError struct {
	// Reason is a human-readable rejection reason.
	Reason string

	// Err is the sentinel this rejection wraps.
	Err error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("input rejected: %s", e.Reason)
}

// Unwrap returns the underlying sentinel error.
func (e *InputError) Unwrap() error { return e.Err }

// NewInputError creates an InputError wrapping the given sentinel.
func NewInputError(sentinel error, reason string) *InputError {
	return &InputError{Reason: reason, Err: sentinel}
}

// TotalFailureError reports that every chunk of a document failed. It
// carries the full error list for diagnostics and the dominant failure
// classification so callers can surface a specific message, such as
// "provider appears to be down" versus "configuration is invalid".
type TotalFailureError struct {
	// Errors holds one entry per failed chunk, in index order.
	Errors []ChunkError

	// Dominant is the classification shared by every chunk error, or
	// FailureUnknown when the classifications are mixed.
	Dominant FailureClass

	// Mixed reports whether the chunk errors had differing classes.
	Mixed bool
}

// NewTotalFailure builds a TotalFailureError from the accumulated chunk
// errors, computing the dominant classification.
func NewTotalFailure(errs []ChunkError) *TotalFailureError {
	tf := &TotalFailureError{Errors: errs}
	for i, e := range errs {
		if i == 0 {
			tf.Dominant = e.Class
			continue
		}
		if e.Class != tf.Dominant {
			tf.Dominant = FailureUnknown
			tf.Mixed = true
			break
		}
	}
	return tf
}

// Error implements the error interface.
func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("all %d chunks failed: %s", len(e.Errors), e.Advice())
}

// Advice returns an actionable, user-facing message derived from the
// dominant classification.
func (e *TotalFailureError) Advice() string {
	if e.Mixed {
		return "chunks failed for differing reasons; inspect diagnostics"
	}
	switch e.Dominant {
	case FailureRetryable:
		return "scoring provider appears to be unavailable; retry later"
	case FailureTimeout:
		return "scoring provider is not responding in time; retry later"
	case FailureTerminal:
		return "scoring provider rejected the requests; check configuration"
	default:
		return "verification failed; inspect diagnostics"
	}
}
