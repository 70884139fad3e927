// Package application orchestrates document verification: it normalizes
// and chunks the input, fans chunks out to the detector with bounded
// concurrency, and folds the per-chunk results into a single report.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/veridoc/veridoc/infrastructure/textproc"
	"github.com/veridoc/veridoc/internal/domain"
	"github.com/veridoc/veridoc/internal/ports"
)

// Engine runs the verification pipeline. It is safe for concurrent use;
// each Verify call carries its own state.
type Engine struct {
	cfg     Config
	scorer  ports.ChunkScorer
	store   ports.DocumentStore
	metrics ports.MetricsCollector
	log     *log.Logger
}

// Option customizes an Engine beyond its required dependencies.
type Option func(*Engine)

// WithDocumentStore enables VerifyDocument by wiring a document store.
func WithDocumentStore(store ports.DocumentStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithMetrics wires a metrics collector for pipeline-level metrics.
// Detector-level metrics are a middleware concern, not the engine's.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine validates the config and assembles an engine around the
// given chunk scorer.
func NewEngine(cfg Config, scorer ports.ChunkScorer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, errors.New("engine requires a chunk scorer")
	}
	e := &Engine{
		cfg:    cfg,
		scorer: scorer,
		log:    log.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Verify checks a document for machine-generated content and returns the
// aggregate report. Input-side rejections (unsupported language, too
// short) come back as *domain.InputError; a document where every chunk
// failed comes back as *domain.TotalFailureError.
func (e *Engine) Verify(ctx context.Context, doc domain.Document) (*domain.AggregateResult, error) {
	start := time.Now()

	if !e.cfg.SupportsLanguage(doc.Language) {
		return nil, domain.NewInputError(domain.ErrUnsupportedLanguage,
			fmt.Sprintf("language %q is not supported", doc.Language))
	}

	text := textproc.Normalize(doc.Text)
	if len(strings.TrimSpace(text)) < e.cfg.MinInputLength {
		return nil, domain.NewInputError(domain.ErrInputTooShort,
			fmt.Sprintf("document has %d characters after normalization, need at least %d",
				len(strings.TrimSpace(text)), e.cfg.MinInputLength))
	}
	if len(text) > e.cfg.MaxInputLength {
		e.log.Warn("truncating oversized document",
			"document_id", doc.ID,
			"length", len(text),
			"limit", e.cfg.MaxInputLength)
		text = truncateAtBoundary(text, e.cfg.MaxInputLength)
	}

	chunks := textproc.Split(text, e.cfg.MaxChunkSize)
	if len(chunks) == 0 {
		return nil, domain.NewInputError(domain.ErrInputTooShort,
			"document is empty after normalization")
	}

	e.log.Info("verification started",
		"document_id", doc.ID,
		"chunks", len(chunks),
		"provider", e.scorer.Name())

	results, chunkErrs := e.scoreChunks(ctx, chunks)

	agg, err := domain.Aggregate(results, chunkErrs)
	if err != nil {
		e.log.Error("verification failed",
			"document_id", doc.ID,
			"chunks", len(chunks),
			"error", err)
		e.record("failed", start)
		return nil, err
	}

	agg.CompletedAt = time.Now()
	agg.Passed = agg.HumanScore >= e.cfg.MinHumanScore

	if agg.Partial() {
		e.log.Warn("partial verification",
			"document_id", doc.ID,
			"scored", agg.ChunksScored,
			"failed", agg.ChunksFailed)
	}
	e.log.Info("verification completed",
		"document_id", doc.ID,
		"human_score", agg.HumanScore,
		"passed", agg.Passed,
		"duration", time.Since(start))
	e.record("completed", start)
	if e.metrics != nil {
		e.metrics.RecordHistogram("verification_human_score", agg.HumanScore,
			map[string]string{"passed": fmt.Sprintf("%t", agg.Passed)})
	}
	return agg, nil
}

// VerifyDocument loads a document from the store, verifies it, and
// persists the result under the same ID.
func (e *Engine) VerifyDocument(ctx context.Context, id string) (*domain.AggregateResult, error) {
	if e.store == nil {
		return nil, errors.New("engine has no document store")
	}
	text, err := e.store.GetDocumentText(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	result, err := e.Verify(ctx, domain.Document{ID: id, Text: text})
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveResult(ctx, id, result); err != nil {
		return nil, fmt.Errorf("save result for %s: %w", id, err)
	}
	return result, nil
}

// scoreChunks fans chunks out to the scorer with bounded concurrency.
// Failures never cancel sibling chunks; each lands in its index slot so
// the report stays in document order.
func (e *Engine) scoreChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.ChunkResult, []domain.ChunkError) {
	resultSlots := make([]*domain.ChunkResult, len(chunks))
	errorSlots := make([]*domain.ChunkError, len(chunks))

	var g errgroup.Group
	g.SetLimit(e.cfg.ConcurrencyLimit)
	for _, chunk := range chunks {
		g.Go(func() error {
			res, err := e.scorer.Score(ctx, chunk)
			if err != nil {
				errorSlots[chunk.Index] = e.asChunkError(chunk.Index, err)
				return nil
			}
			resultSlots[chunk.Index] = &res
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers always return nil

	var results []domain.ChunkResult
	var chunkErrs []domain.ChunkError
	for i := range chunks {
		if resultSlots[i] != nil {
			results = append(results, *resultSlots[i])
		}
		if errorSlots[i] != nil {
			chunkErrs = append(chunkErrs, *errorSlots[i])
		}
	}
	return results, chunkErrs
}

func (e *Engine) asChunkError(index int, err error) *domain.ChunkError {
	var ce *domain.ChunkError
	if errors.As(err, &ce) {
		return ce
	}
	class := domain.FailureUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		class = domain.FailureTimeout
	}
	return &domain.ChunkError{
		Index:   index,
		Class:   class,
		Message: err.Error(),
	}
}

func (e *Engine) record(status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	labels := map[string]string{"status": status}
	e.metrics.RecordLatency("verification", time.Since(start), labels)
	e.metrics.RecordCounter("verifications_total", 1, labels)
}

// truncateAtBoundary cuts text to at most limit bytes, backing up to the
// last whitespace so a word is never split mid-way.
func truncateAtBoundary(text string, limit int) string {
	cut := text[:limit]
	if i := strings.LastIndexAny(cut, " \t\n"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t\n")
}
