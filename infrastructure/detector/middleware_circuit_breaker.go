package detector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/veridoc/veridoc/internal/domain"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a request.
// This error is returned when the circuit is open and prevents
// requests from reaching the detection provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all requests to pass through normally.
	// This is the default state when the provider is healthy.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all requests immediately to prevent cascading failures.
	// The circuit enters this state after too many consecutive failures.
	StateOpen

	// StateHalfOpen allows limited requests to test provider recovery.
	// The circuit transitions to this state after the cooldown period expires.
	StateHalfOpen
)

// CircuitBreaker tracks consecutive provider failures and automatically
// opens when they exceed the threshold, then tests recovery through the
// half-open state.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
}

// NewCircuitBreaker creates a circuit breaker with the specified configuration.
// The circuit opens after maxFailures consecutive errors and stays open
// for cooldownDuration before testing recovery.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
	}
}

// Call executes a function through the circuit breaker.
// If the circuit is open, this returns ErrCircuitOpen immediately.
// Otherwise it executes the function and updates circuit state based on
// the result. Only transient failures count toward opening the circuit;
// a terminal error such as a bad API key says nothing about provider
// health.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldownDuration {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		fallthrough
	case StateHalfOpen:
		err := fn()
		if err != nil && countsAsFailure(err) {
			cb.failureCount++
			cb.lastFailure = time.Now()
			cb.state = StateOpen
			return err
		}
		if err != nil {
			return err
		}
		cb.failureCount = 0
		cb.state = StateClosed
		return nil
	case StateClosed:
		err := fn()
		if err != nil && countsAsFailure(err) {
			cb.failureCount++
			cb.lastFailure = time.Now()
			if cb.failureCount >= cb.maxFailures {
				cb.state = StateOpen
			}
			return err
		}
		if err != nil {
			return err
		}
		cb.failureCount = 0
		return nil
	}
	return nil
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// countsAsFailure reports whether err should trip the circuit. Transient
// classes signal provider distress; everything else is the caller's
// problem.
func countsAsFailure(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class.Transient()
	}
	return true
}

// circuitBreakedScorer rejects requests fast while the provider is
// failing so a struggling endpoint gets room to recover.
type circuitBreakedScorer struct {
	next CoreScorer
	cb   *CircuitBreaker
}

// CircuitBreakerMiddleware creates middleware that implements the
// circuit breaker pattern. The circuit opens after maxFailures
// consecutive transient errors and stays open for the cooldown duration
// before attempting recovery. Place it inside RetryMiddleware so retry
// attempts observe the open circuit.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next CoreScorer) CoreScorer {
		return &circuitBreakedScorer{next: next, cb: cb}
	}
}

// DoScore executes the request through the circuit breaker.
// An open circuit fails immediately with a retryable ProviderError so
// upstream retry and aggregation logic treat it like any other
// provider-unavailable condition.
func (c *circuitBreakedScorer) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	var result domain.ChunkResult
	err := c.cb.Call(func() error {
		var err error
		result, err = c.next.DoScore(ctx, text)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return domain.ChunkResult{}, &ProviderError{
			Provider:     c.next.Name(),
			Class:        domain.FailureRetryable,
			Message:      "circuit breaker is open",
			WrappedError: ErrCircuitOpen,
		}
	}
	if err != nil {
		return domain.ChunkResult{}, err
	}
	return result, nil
}

// Name returns the provider name from the wrapped implementation.
func (c *circuitBreakedScorer) Name() string { return c.next.Name() }
