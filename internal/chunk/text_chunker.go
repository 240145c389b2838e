package chunk

import (
	"strings"
	"unicode/utf8"
)

// TextChunker splits normalized plain text into overlapping windows,
// preferring paragraph and line breaks near the target size over hard
// cuts.
type TextChunker struct {
	targetTokens  int
	overlapTokens int
}

// NewTextChunker creates a plain-text chunker. Non-positive target falls
// back to the default; negative overlap is clamped to zero.
func NewTextChunker(targetTokens, overlapTokens int) *TextChunker {
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	return &TextChunker{targetTokens: targetTokens, overlapTokens: overlapTokens}
}

// Chunk splits content into ordered chunks. Identical input always
// produces identical chunks. Empty or whitespace-only input yields nil.
//
// The cursor is guaranteed to advance every iteration: when the overlap
// would move the next start at or before the previous one, the next chunk
// starts exactly at the current end instead.
func (c *TextChunker) Chunk(content string) []*Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	targetChars := c.targetTokens * CharsPerToken
	if targetChars < 1 {
		targetChars = 1
	}
	overlapChars := c.overlapTokens * CharsPerToken

	var chunks []*Chunk
	start := 0

	for start < len(content) {
		fallbackEnd := start + targetChars
		if fallbackEnd > len(content) {
			fallbackEnd = len(content)
		}
		end := chooseBoundary(content, start, fallbackEnd)

		slice := strings.TrimSpace(content[start:end])
		if slice == "" {
			start = end
			continue
		}

		chunks = append(chunks, &Chunk{
			Ordinal: len(chunks),
			Text:    slice,
			Tokens:  EstimateTokens(slice),
		})

		if end >= len(content) {
			break
		}

		candidate := end - overlapChars
		if candidate < 0 {
			candidate = 0
		}
		for candidate < len(content) && !utf8.RuneStart(content[candidate]) {
			candidate++
		}
		if candidate <= start {
			start = end
		} else {
			start = candidate
		}
	}

	return chunks
}

// chooseBoundary refines a naive cut position. It searches backward from
// proposedEnd for a paragraph break (blank line), then a single line
// break, but only within the second half of the window so chunks never
// shrink below half the target. Without a usable break the cut lands
// exactly at proposedEnd, nudged back to a rune boundary.
func chooseBoundary(text string, start, proposedEnd int) int {
	if proposedEnd >= len(text) {
		return len(text)
	}
	windowStart := start + (proposedEnd-start)/2

	searchEnd := proposedEnd + 2
	if searchEnd > len(text) {
		searchEnd = len(text)
	}
	if idx := strings.LastIndex(text[:searchEnd], "\n\n"); idx >= windowStart {
		return idx + 2
	}

	searchEnd = proposedEnd + 1
	if searchEnd > len(text) {
		searchEnd = len(text)
	}
	if idx := strings.LastIndex(text[:searchEnd], "\n"); idx >= windowStart {
		return idx + 1
	}

	// Hard cut: avoid splitting a multi-byte rune.
	end := proposedEnd
	for end > start+1 && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}
