// Package detector provides clients for external text-scoring providers
// (AI-text detection, plagiarism) with built-in support for retries,
// timeouts, rate limiting, metrics, and tracing.
//
// The package abstracts the two provider shapes the engine supports,
// synchronous request/response scoring and asynchronous job-based
// scoring, behind a common interface, and layers cross-cutting concerns
// through a middleware pattern so provider logic stays free of them.
//
// Basic usage:
//
//	client, err := detector.NewClient(detector.ModeSync, detector.ClientConfig{
//	    APIKey:  os.Getenv("DETECTOR_API_KEY"),
//	    BaseURL: "https://detector.example.com",
//	    Middleware: []detector.Middleware{
//	        detector.RetryMiddleware(3, time.Second, 30*time.Second),
//	        detector.TimeoutMiddleware(30 * time.Second),
//	    },
//	})
//	result, err := client.Score(ctx, chunk)
package detector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/veridoc/veridoc/internal/domain"
	"github.com/veridoc/veridoc/internal/ports"
)

// Provider modes supported by NewClient.
const (
	// ModeSync scores a chunk in a single request/response round trip.
	ModeSync = "sync"
	// ModeAsync scores a chunk through a create/upload/poll job lifecycle.
	ModeAsync = "async"
)

// CoreScorer is the minimal interface provider implementations expose.
// Middleware wraps any conforming implementation.
type CoreScorer interface {
	// DoScore submits one piece of text for scoring and returns the
	// provider's result. The returned ChunkResult carries no index;
	// the Client assigns it.
	DoScore(ctx context.Context, text string) (domain.ChunkResult, error)

	// Name identifies the provider for logs, metrics and errors.
	Name() string
}

// Middleware wraps a CoreScorer to add cross-cutting functionality such
// as retries, timeouts, rate limiting or metrics.
type Middleware func(CoreScorer) CoreScorer

// ClientConfig holds all configuration for creating a scoring client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// APIKeyHeader is the header the key is sent in.
	// Defaults to "X-RapidAPI-Key".
	APIKeyHeader string

	// BaseURL is the provider's API root.
	BaseURL string

	// HTTPClient overrides the transport, primarily for tests.
	// Nil means a default client.
	HTTPClient *http.Client

	// Async configures the job lifecycle for ModeAsync providers.
	// Ignored for ModeSync.
	Async AsyncConfig

	// Middleware is applied in the order specified; the first entry is
	// the outermost wrapper.
	Middleware []Middleware
}

// AsyncConfig bounds the create/upload/poll lifecycle of an
// asynchronous provider.
type AsyncConfig struct {
	// CreateAttempts is the total number of job-creation attempts.
	// The default of 1 means creation failures are terminal, matching
	// providers whose job intake is assumed reliable. Raise it to make
	// creation retry on transient errors like chunk scoring does.
	CreateAttempts int

	// MaxPollAttempts caps how many status polls run while the job
	// stays pending.
	MaxPollAttempts int

	// PollBaseDelay is the delay before the first poll; it doubles per
	// poll up to PollMaxDelay.
	PollBaseDelay time.Duration

	// PollMaxDelay caps the delay between polls.
	PollMaxDelay time.Duration

	// OverallTimeout is the wall-clock budget for the whole job.
	OverallTimeout time.Duration
}

var _ ports.ChunkScorer = (*Client)(nil)

// Client implements ports.ChunkScorer by delegating to a
// middleware-wrapped CoreScorer and binding results to chunk indices.
type Client struct {
	core CoreScorer
}

// NewClient creates a scoring client for the given provider mode.
// It assembles the middleware chain and validates configuration before
// returning a ready-to-use client.
func NewClient(mode string, config ClientConfig) (*Client, error) {
	var core CoreScorer
	var err error
	switch mode {
	case ModeSync:
		core, err = newSyncProvider(config)
	case ModeAsync:
		core, err = newAsyncProvider(config)
	default:
		return nil, fmt.Errorf("unknown provider mode: %s", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first middleware is the
	// outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// NewClientWithCore wraps an existing CoreScorer with middleware.
// Tests use this to substitute a canned-response scorer.
func NewClientWithCore(core CoreScorer, middleware ...Middleware) *Client {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	return &Client{core: core}
}

// Score submits one chunk and returns its scored result. On failure the
// returned error is a *domain.ChunkError carrying the chunk index, the
// failure classification and the number of attempts made.
func (c *Client) Score(ctx context.Context, chunk domain.Chunk) (domain.ChunkResult, error) {
	result, err := c.core.DoScore(ctx, chunk.Text)
	if err != nil {
		return domain.ChunkResult{}, chunkError(chunk.Index, err)
	}
	result.Index = chunk.Index
	if result.WordCount <= 0 {
		result.WordCount = chunk.Words()
	}
	return result, nil
}

// Name returns the underlying provider's name.
func (c *Client) Name() string { return c.core.Name() }

// chunkError converts a provider error into the domain's per-chunk
// failure record.
func chunkError(index int, err error) *domain.ChunkError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		attempts := pe.Attempts
		if attempts < 1 {
			attempts = 1
		}
		return &domain.ChunkError{
			Index:      index,
			StatusCode: pe.StatusCode,
			Class:      pe.Class,
			Message:    pe.Error(),
			Attempts:   attempts,
		}
	}

	class := domain.FailureUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		class = domain.FailureTimeout
	}
	return &domain.ChunkError{
		Index:    index,
		Class:    class,
		Message:  err.Error(),
		Attempts: 1,
	}
}
