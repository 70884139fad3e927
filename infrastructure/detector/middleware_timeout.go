package detector

import (
	"context"
	"time"

	"github.com/veridoc/veridoc/internal/domain"
)

// timeoutScorer enforces a hard per-request deadline so a hung provider
// cannot stall a chunk indefinitely.
type timeoutScorer struct {
	next    CoreScorer
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that bounds each scoring request.
// A request that does not complete in time is abandoned and surfaces as
// a timeout-class failure, which the retry middleware treats as
// transient.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreScorer) CoreScorer {
		return &timeoutScorer{
			next:    next,
			timeout: timeout,
		}
	}
}

// DoScore executes the request under a timeout context.
func (t *timeoutScorer) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoScore(ctx, text)
}

// Name returns the provider name from the wrapped implementation.
func (t *timeoutScorer) Name() string { return t.next.Name() }
