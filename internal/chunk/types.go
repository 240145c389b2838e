// Package chunk splits normalized document text into retrieval-sized
// units. Two chunkers are provided: TextChunker cuts plain extracted text
// into overlapping windows, MarkdownChunker cuts structured Markdown into
// heading-delimited sections with anchor metadata. Both are pure,
// deterministic transforms with no hidden state.
package chunk

import "strings"

// Chunk size defaults, matching the pack defaults used by the CLI.
const (
	// DefaultTargetTokens is the default plain-text chunk size.
	DefaultTargetTokens = 800
	// DefaultOverlapTokens is the default plain-text inter-chunk overlap.
	DefaultOverlapTokens = 120
	// CharsPerToken is the character-ratio heuristic: 4 chars ~ 1 token.
	CharsPerToken = 4
)

// Chunk is one retrieval unit belonging to a single document.
// Ordinals are contiguous 0..N-1 in document order.
type Chunk struct {
	// Ordinal is the zero-based position within the document.
	Ordinal int
	// Text is the chunk content, trimmed and never empty.
	Text string
	// Tokens is the estimated token count. TextChunker uses the
	// character-ratio heuristic, MarkdownChunker the word-count heuristic;
	// counts from the two chunkers are not cross-comparable.
	Tokens int

	// FilePath is the file this chunk came from, when known.
	FilePath string

	// Structural metadata, set by MarkdownChunker only.

	// Heading is the owning section heading's display text; empty for an
	// intro chunk and for plain-text chunks.
	Heading string
	// HeadingDepth is the owning heading's level (1-6), 0 when headingless.
	HeadingDepth int
	// HeadingPath is the hierarchical heading trail ("Guide > Install").
	HeadingPath string
	// Anchors are the slugs of every in-range heading in this section's
	// subtree, in document order.
	Anchors []string
	// PrimaryAnchor is the first anchor, used for deep links.
	PrimaryAnchor string

	// Code marks a chunk that is predominantly fenced code.
	Code bool
	// PageNo is the 1-based source page when the extractor reports pages,
	// 0 otherwise.
	PageNo int
}

// EstimateTokens approximates a token count from the character-ratio
// heuristic. Always at least 1 for non-empty text.
func EstimateTokens(text string) int {
	n := (len(text) + CharsPerToken - 1) / CharsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// EstimateTokensByWords approximates a token count from the word count
// (roughly 4 tokens per 3 words). Used by the Markdown chunker, where
// heading markup makes the character ratio overshoot.
func EstimateTokensByWords(text string) int {
	words := len(strings.Fields(text))
	n := (words*4 + 2) / 3
	if n < 1 {
		return 1
	}
	return n
}
