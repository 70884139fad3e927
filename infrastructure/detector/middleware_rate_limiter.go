package detector

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/veridoc/veridoc/internal/domain"
)

// rateLimitedScorer paces outbound requests with a token bucket so
// concurrent chunk workers cannot overrun the provider's rate limits.
type rateLimitedScorer struct {
	next    CoreScorer
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces a token-bucket
// rate limit. The limit parameter sets requests per second; burst allows
// temporary spikes above the sustained rate.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreScorer) CoreScorer {
		return &rateLimitedScorer{
			next:    next,
			limiter: limiter,
		}
	}
}

// DoScore waits for rate-limit permission before forwarding the request.
func (r *rateLimitedScorer) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.ChunkResult{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoScore(ctx, text)
}

// Name returns the provider name from the wrapped implementation.
func (r *rateLimitedScorer) Name() string { return r.next.Name() }
