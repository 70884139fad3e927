package detector

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/veridoc/veridoc/internal/domain"
)

// tracedScorer wraps scoring requests in OpenTelemetry spans for
// request-level observability across services.
type tracedScorer struct {
	next        CoreScorer
	serviceName string
}

// TracingMiddleware creates middleware that records one span per
// scoring request, annotated with the provider and text length.
func TracingMiddleware(serviceName string) Middleware {
	return func(next CoreScorer) CoreScorer {
		return &tracedScorer{
			next:        next,
			serviceName: serviceName,
		}
	}
}

// DoScore executes the request within a trace span.
func (t *tracedScorer) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	tracer := otel.Tracer(t.serviceName)
	ctx, span := tracer.Start(ctx, "detector.score",
		trace.WithAttributes(
			attribute.String("detector.provider", t.next.Name()),
			attribute.Int("detector.text.length", len(text)),
		),
	)
	defer span.End()

	result, err := t.next.DoScore(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	span.SetAttributes(
		attribute.Float64("detector.score.human", result.HumanScore),
		attribute.Int("detector.words", result.WordCount),
	)
	return result, nil
}

// Name returns the provider name from the wrapped implementation.
func (t *tracedScorer) Name() string { return t.next.Name() }
