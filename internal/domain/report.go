// Package domain contains the core data model for the verification engine:
// chunks, per-chunk scoring results, the document-level aggregate, and the
// failure taxonomy shared by every provider integration.
package domain

import (
	"time"
)

// ChunkResult is a scoring provider's response for a single chunk.
// It is produced by a provider client and consumed only by aggregation.
type ChunkResult struct {
	// Index identifies the chunk this result belongs to.
	Index int `json:"index"`

	// HumanScore is the provider's human-likelihood estimate (0-100).
	HumanScore float64 `json:"human_score"`

	// MachineScore is the machine-likelihood complement (0-100).
	MachineScore float64 `json:"machine_score"`

	// WordCount is the number of words the provider scored. It is the
	// chunk's weight during aggregation.
	WordCount int `json:"word_count"`

	// Feedback carries optional free-text commentary from the provider.
	Feedback string `json:"feedback,omitempty"`
}

// AggregateResult is the document-level outcome of one verification run.
// Once produced it is immutable; callers persist it as-is.
type AggregateResult struct {
	// HumanScore is the word-count-weighted mean human-likelihood (0-100).
	HumanScore float64 `json:"human_score"`

	// MachineScore is the word-count-weighted mean machine-likelihood (0-100).
	MachineScore float64 `json:"machine_score"`

	// WordCount is the total number of words scored across all chunks.
	WordCount int `json:"word_count"`

	// Feedback is the combined, deduplicated provider feedback in
	// first-occurrence order. When the document was split, a note about
	// the split is prepended so a human reader knows its origin.
	Feedback string `json:"feedback,omitempty"`

	// Passed reports whether HumanScore met the configured minimum.
	Passed bool `json:"passed"`

	// ChunksScored counts the chunks that produced a usable result.
	ChunksScored int `json:"chunks_scored"`

	// ChunksFailed counts the chunks that failed after exhausting their
	// retry budget. A nonzero value with ChunksScored > 0 means the
	// result is partial, not a failure.
	ChunksFailed int `json:"chunks_failed"`

	// Diagnostics retains per-chunk errors that did not prevent an
	// overall result. It is omitted from JSON when empty.
	Diagnostics []ChunkError `json:"diagnostics,omitempty"`

	// CompletedAt records when the verification run finished.
	CompletedAt time.Time `json:"completed_at"`
}

// Partial reports whether some chunks failed while others were scored.
// A partial result is surfaced as success with a visible caveat, never
// as a hard failure.
func (r *AggregateResult) Partial() bool {
	return r.ChunksFailed > 0 && r.ChunksScored > 0
}
