// Package textproc prepares document text for external scoring: it
// strips markup down to plain text and splits long texts into
// provider-sized chunks along natural boundaries.
package textproc

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

var (
	headingRe  = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	boldRe     = regexp.MustCompile(`\*{1,3}([^*\n]+)\*{1,3}`)
	italicRe   = regexp.MustCompile(`\b_{1,3}([^_\n]+)_{1,3}\b`)
	linkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	codeRe     = regexp.MustCompile("`([^`\n]*)`")
	footnoteRe = regexp.MustCompile(`\[\^[^\]]+\]`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
)

// Normalize strips markdown-like markup from a rich-text document,
// producing plain text suitable for external scoring. Heading markers,
// emphasis markers, link syntax (link text is kept), inline code markers
// and footnote references are removed, and runs of three or more
// newlines collapse to exactly two.
//
// Normalize is deterministic and accepts any string, including empty.
func Normalize(markup string) string {
	text := norm.NFC.String(markup)
	text = headingRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = footnoteRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = codeRe.ReplaceAllString(text, "$1")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	return text
}
