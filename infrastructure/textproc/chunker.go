package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/veridoc/veridoc/internal/domain"
)

var paragraphRe = regexp.MustCompile(`\n[ \t]*\n`)

// Split cuts text into ordered chunks of at most maxChunkSize characters
// each, preferring boundaries on the largest semantic unit that fits:
// blank-line-delimited paragraphs first, then sentences, then words.
//
// A chunk may exceed maxChunkSize only when it consists of exactly one
// word that is itself longer than the limit; such a chunk is valid input
// to scoring, not an error. Empty input yields no chunks. Indices are
// assigned left to right over the original text and are stable.
func Split(text string, maxChunkSize int) []domain.Chunk {
	if maxChunkSize <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := splitParagraphs(text, maxChunkSize)
	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{Index: i, Text: p}
	}
	return chunks
}

func splitParagraphs(text string, max int) []string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return []string{trimmed}
	}

	var units []string
	for _, p := range paragraphRe.Split(trimmed, -1) {
		if p = strings.TrimSpace(p); p != "" {
			units = append(units, p)
		}
	}
	return accumulate(units, "\n\n", max, splitSentences)
}

func splitSentences(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}
	return accumulate(sentenceUnits(text), " ", max, splitWords)
}

func splitWords(text string, max int) []string {
	// Word level is the last resort; a single word longer than the
	// limit becomes its own oversized chunk.
	return accumulate(strings.Fields(text), " ", max, func(word string, _ int) []string {
		return []string{word}
	})
}

// sentenceUnits splits text after '.', '!' or '?' followed by
// whitespace, keeping the terminator with its sentence.
func sentenceUnits(text string) []string {
	var units []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			units = append(units, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		units = append(units, s)
	}
	return units
}

// accumulate greedily packs units into buffers of at most max characters,
// flushing whenever the next unit would overflow. Units that alone
// exceed the limit are recursed into via overflow.
func accumulate(units []string, sep string, max int, overflow func(string, int) []string) []string {
	var out []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}

	for _, unit := range units {
		if len(unit) > max {
			flush()
			out = append(out, overflow(unit, max)...)
			continue
		}
		need := len(unit)
		if buf.Len() > 0 {
			need += len(sep)
		}
		if buf.Len()+need > max {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(unit)
	}
	flush()
	return out
}
