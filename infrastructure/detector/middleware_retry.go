package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veridoc/veridoc/internal/domain"
)

// retryScorer implements automatic retry with exponential backoff.
// Transient failures (upstream unavailable, timeouts) are retried up to
// the attempt budget; terminal failures short-circuit immediately so the
// retry budget is never spent on errors retrying cannot fix.
type retryScorer struct {
	next        CoreScorer
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// RetryMiddleware creates middleware that retries transient failures
// with exponential backoff. maxAttempts is the total number of attempts,
// so a value of 3 issues at most three requests with delays of baseDelay
// and 2*baseDelay (capped at maxDelay) between them.
func RetryMiddleware(maxAttempts int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreScorer) CoreScorer {
		return &retryScorer{
			next:        next,
			maxAttempts: maxAttempts,
			baseDelay:   baseDelay,
			maxDelay:    maxDelay,
			sleep:       sleepCtx,
		}
	}
}

// DoScore executes the request with automatic retry on transient
// failures. The final error carries the number of attempts made.
func (r *retryScorer) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	attempts := 0
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		result, err := r.next.DoScore(ctx, text)
		attempts = attempt + 1
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}

		var pe *ProviderError
		if !errors.As(err, &pe) || !pe.Retryable() {
			break
		}

		if attempt == r.maxAttempts-1 {
			break
		}

		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			lastErr = fmt.Errorf("backoff interrupted: %w", lastErr)
			break
		}
	}

	var pe *ProviderError
	if errors.As(lastErr, &pe) {
		pe.Attempts = attempts
	}
	return domain.ChunkResult{}, fmt.Errorf("scoring failed after %d attempts: %w", attempts, lastErr)
}

// Name returns the provider name from the wrapped implementation.
func (r *retryScorer) Name() string { return r.next.Name() }

// backoff returns min(baseDelay * 2^attempt, maxDelay).
func (r *retryScorer) backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := r.baseDelay * time.Duration(1<<uint(attempt))
	if delay > r.maxDelay || delay <= 0 {
		delay = r.maxDelay
	}
	return delay
}

// sleepCtx blocks for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
