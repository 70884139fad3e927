// Package testutils provides deterministic test doubles for the
// verification pipeline.
package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/veridoc/veridoc/internal/domain"
	"github.com/veridoc/veridoc/internal/ports"
)

// MockScorer implements the ChunkScorer interface with deterministic
// responses for consistent testing. Responses are matched against chunk
// text by substring; unmatched chunks get the default result.
type MockScorer struct {
	mu sync.Mutex

	// name is reported through Name.
	name string
	// responses maps text patterns to canned outcomes.
	responses []MockResponse
	// defaultResult is returned when no pattern matches.
	defaultResult domain.ChunkResult
	// calls records every chunk passed to Score, in call order.
	calls []domain.Chunk
}

// MockResponse defines a pre-configured outcome for chunks whose text
// contains Pattern. Err takes precedence over Result.
type MockResponse struct {
	Pattern string
	Result  domain.ChunkResult
	Err     error
}

// NewMockScorer creates a MockScorer that scores every chunk as fully
// human-written until patterns are added.
func NewMockScorer(name string) *MockScorer {
	return &MockScorer{
		name: name,
		defaultResult: domain.ChunkResult{
			HumanScore:   100,
			MachineScore: 0,
		},
	}
}

// AddResponse registers a canned outcome. Patterns are checked in the
// order they were added.
func (m *MockScorer) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// SetDefaultResult replaces the fallback result for unmatched chunks.
func (m *MockScorer) SetDefaultResult(r domain.ChunkResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResult = r
}

// Score returns the first matching canned outcome, stamping the chunk
// index and a word count into the result.
func (m *MockScorer) Score(ctx context.Context, chunk domain.Chunk) (domain.ChunkResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChunkResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, chunk)

	result := m.defaultResult
	for _, r := range m.responses {
		if strings.Contains(chunk.Text, r.Pattern) {
			if r.Err != nil {
				return domain.ChunkResult{}, r.Err
			}
			result = r.Result
			break
		}
	}
	result.Index = chunk.Index
	if result.WordCount == 0 {
		result.WordCount = chunk.Words()
	}
	return result, nil
}

// Name implements the ChunkScorer interface.
func (m *MockScorer) Name() string { return m.name }

// Calls returns a copy of the chunks scored so far.
func (m *MockScorer) Calls() []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Chunk, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many chunks have been scored.
func (m *MockScorer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ ports.ChunkScorer = (*MockScorer)(nil)
