package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/veridoc/internal/domain"
)

func TestCircuitBreaker_OpensAfterConsecutiveTransientFailures(t *testing.T) {
	stub := newStubScorer("stub").script(domain.ChunkResult{}, retryableErr())
	client := NewClientWithCore(stub, CircuitBreakerMiddleware(2, time.Hour))

	for i := 0; i < 2; i++ {
		_, err := client.Score(context.Background(), domain.Chunk{Text: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, 2, stub.callCount())

	// The circuit is now open; further requests fail fast.
	_, err := client.Score(context.Background(), domain.Chunk{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, 2, stub.callCount(), "an open circuit must not reach the provider")

	var ce *domain.ChunkError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.FailureRetryable, ce.Class,
		"an open circuit reads as provider-unavailable to the aggregator")
}

func TestCircuitBreaker_TerminalErrorsDoNotTrip(t *testing.T) {
	stub := newStubScorer("stub").script(domain.ChunkResult{}, terminalErr())
	client := NewClientWithCore(stub, CircuitBreakerMiddleware(2, time.Hour))

	for i := 0; i < 5; i++ {
		_, err := client.Score(context.Background(), domain.Chunk{Text: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, 5, stub.callCount(),
		"terminal errors say nothing about provider health")
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Millisecond)

	require.Error(t, cb.Call(func() error { return retryableErr() }))
	assert.Equal(t, StateOpen, cb.GetState())

	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)

	time.Sleep(5 * time.Millisecond)

	// Cooldown has passed; the next call probes in half-open state.
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Millisecond)

	require.Error(t, cb.Call(func() error { return retryableErr() }))
	time.Sleep(5 * time.Millisecond)

	require.Error(t, cb.Call(func() error { return retryableErr() }))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)

	require.Error(t, cb.Call(func() error { return retryableErr() }))
	require.NoError(t, cb.Call(func() error { return nil }))
	require.Error(t, cb.Call(func() error { return retryableErr() }))

	// One failure, success, one failure: never two consecutive.
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCountsAsFailure(t *testing.T) {
	assert.True(t, countsAsFailure(retryableErr()))
	assert.True(t, countsAsFailure(&ProviderError{Class: domain.FailureTimeout}))
	assert.False(t, countsAsFailure(terminalErr()))
	assert.True(t, countsAsFailure(errors.New("unclassified")),
		"unknown errors count as failures to stay on the safe side")
}
