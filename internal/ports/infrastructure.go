// Package ports defines the interfaces the verification engine depends
// on. Provider clients and storage backends implement these; the engine
// itself never references a concrete implementation.
package ports

import (
	"context"
	"time"

	"github.com/veridoc/veridoc/internal/domain"
)

// ChunkScorer scores a single chunk of normalized text against an
// external detection provider. Implementations own retries, timeouts and
// backoff; a returned error is final for that chunk.
//
// Both provider shapes satisfy this interface: synchronous providers
// answer the scoring request in-band, asynchronous providers drive a
// create/upload/poll job lifecycle before returning.
type ChunkScorer interface {
	// Score submits one chunk and blocks until a result or a final
	// error. Implementations must respect ctx cancellation at every
	// network call and backoff sleep.
	Score(ctx context.Context, chunk domain.Chunk) (domain.ChunkResult, error)

	// Name identifies the provider integration for logs and metrics.
	Name() string
}

// DocumentStore abstracts where documents live and where results go.
// The engine does not know or care whether this is a relational store,
// an object store, or an API; it only needs these two operations.
type DocumentStore interface {
	// GetDocumentText returns the raw text of a stored document.
	GetDocumentText(ctx context.Context, id string) (string, error)

	// SaveResult persists the document-level result. The result is
	// immutable once produced.
	SaveResult(ctx context.Context, id string, result *domain.AggregateResult) error
}

// MetricsCollector defines the interface for collecting operational
// metrics. Implementations should integrate with observability platforms
// such as Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, for example score
	// distributions.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
