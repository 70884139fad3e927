package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading markers stripped",
			in:   "# Title\n\n## Subtitle\n\nBody text.",
			want: "Title\n\nSubtitle\n\nBody text.",
		},
		{
			name: "bold and italic markers stripped",
			in:   "This is **important** and *emphasized* and ***both***.",
			want: "This is important and emphasized and both.",
		},
		{
			name: "underscore emphasis stripped",
			in:   "An _emphasized_ word and a __strong__ one.",
			want: "An emphasized word and a strong one.",
		},
		{
			name: "link text kept, target dropped",
			in:   "See [the docs](https://example.com/docs) for details.",
			want: "See the docs for details.",
		},
		{
			name: "inline code markers stripped",
			in:   "Run `make test` before pushing.",
			want: "Run make test before pushing.",
		},
		{
			name: "footnote references removed",
			in:   "A claim[^1] with a footnote[^note].",
			want: "A claim with a footnote.",
		},
		{
			name: "newline runs collapse to two",
			in:   "First.\n\n\n\n\nSecond.",
			want: "First.\n\nSecond.",
		},
		{
			name: "plain text unchanged",
			in:   "Nothing fancy here, just prose.",
			want: "Nothing fancy here, just prose.",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "snake_case identifiers survive",
			in:   "The variable max_chunk_size is not emphasis.",
			want: "The variable max_chunk_size is not emphasis.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_UnicodeComposition(t *testing.T) {
	// Decomposed "é" (e + combining acute) normalizes to the composed form.
	decomposed := "résumé"
	composed := "résumé"
	assert.Equal(t, composed, Normalize(decomposed))
}

func TestNormalize_Deterministic(t *testing.T) {
	in := "# Heading\n\nSome **bold** text with a [link](http://x.test).\n\n\n\nEnd."
	assert.Equal(t, Normalize(in), Normalize(in))
	// Normalizing already-normalized text is a no-op.
	assert.Equal(t, Normalize(in), Normalize(Normalize(in)))
}
