package domain

import "strings"

// Chunk is a bounded-size contiguous slice of normalized document text
// submitted as one scoring unit.
// Chunks are produced in left-to-right order over the source text and
// their indices are stable; aggregation never reorders them.
type Chunk struct {
	// Index is the 0-based position of this chunk within the document.
	Index int `json:"index"`

	// Text contains the chunk content.
	Text string `json:"text"`
}

// Len returns the chunk length in characters.
// A chunk may exceed the configured maximum only when it consists of a
// single word that is itself longer than the limit.
func (c Chunk) Len() int { return len(c.Text) }

// Words returns the number of whitespace-separated words in the chunk.
// Word counts are the weighting basis for aggregation because chunk
// boundaries are an implementation artifact.
func (c Chunk) Words() int { return len(strings.Fields(c.Text)) }
