// Package normalize cleans up text returned by extraction services before
// it reaches the chunkers. Extractors emit CRLF line endings, stray control
// characters, and page-break artifacts that would otherwise leak into chunk
// boundaries and the full-text index.
package normalize

import (
	"regexp"
	"strings"
)

var (
	// Control characters except newline (tab handled separately).
	controlExceptNewline = regexp.MustCompile("[\x00-\x08\x0b-\x1f\x7f]")

	// Trailing spaces and NBSP at end of line.
	trailingSpace = regexp.MustCompile("[  ]+$")

	// Three or more consecutive newlines collapse to a paragraph break.
	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// Text normalizes whitespace and control characters in extracted text.
// The result uses LF line endings, has no control characters other than
// newlines, no trailing whitespace on any line, and at most one blank line
// between paragraphs. An input that is empty or all whitespace normalizes
// to the empty string.
func Text(input string) string {
	text := strings.ReplaceAll(input, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlExceptNewline.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\t", " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = trailingSpace.ReplaceAllString(line, "")
	}
	text = strings.Join(lines, "\n")

	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
