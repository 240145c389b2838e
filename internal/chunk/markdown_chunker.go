package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

// Heading depth defaults: sections start at ## and ### headings, with #
// usually being the document title and #### and deeper folded into their
// parent section.
const (
	DefaultMinHeadingDepth = 2
	DefaultMaxHeadingDepth = 3
)

// MarkdownChunker splits Markdown into heading-delimited sections.
// Headings within [MinDepth, MaxDepth] start a new section; content before
// the first in-range heading becomes a headingless intro chunk.
type MarkdownChunker struct {
	minDepth int
	maxDepth int
}

var headingLine = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// NewMarkdownChunker creates a Markdown chunker for the given heading
// depth range. Out-of-range values fall back to the 2-3 default.
func NewMarkdownChunker(minDepth, maxDepth int) *MarkdownChunker {
	if minDepth < 1 || minDepth > 6 {
		minDepth = DefaultMinHeadingDepth
	}
	if maxDepth < minDepth || maxDepth > 6 {
		maxDepth = DefaultMaxHeadingDepth
	}
	return &MarkdownChunker{minDepth: minDepth, maxDepth: maxDepth}
}

// heading is one parsed Markdown heading.
type heading struct {
	offset  int // byte offset of the heading line
	depth   int
	text    string
	path    string // hierarchical trail including shallower headings
	slug    string // set for in-range headings only
	inRange bool
}

// Chunk splits content into section chunks. Ordinals are assigned
// sequentially after emission; an intro chunk, when present, is always
// ordinal 0. Sections whose body is empty after the heading line are
// skipped. Empty or whitespace-only content yields nil.
func (c *MarkdownChunker) Chunk(filePath, content string) []*Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	headings := c.parseHeadings(content)

	var inRange []*heading
	for _, h := range headings {
		if h.inRange {
			inRange = append(inRange, h)
		}
	}

	var chunks []*Chunk

	// Content ahead of the first in-range heading becomes the intro.
	introEnd := len(content)
	if len(inRange) > 0 {
		introEnd = inRange[0].offset
	}
	if intro := strings.TrimSpace(content[:introEnd]); intro != "" {
		chunks = append(chunks, &Chunk{
			Text:     intro,
			Tokens:   EstimateTokensByWords(intro),
			FilePath: filePath,
		})
	}

	for i, h := range inRange {
		end := len(content)
		if i+1 < len(inRange) {
			end = inRange[i+1].offset
		}
		section := strings.TrimSpace(content[h.offset:end])

		if sectionBody(section) == "" {
			continue
		}

		anchors := subtreeAnchors(inRange, i)

		chunks = append(chunks, &Chunk{
			Text:          section,
			Tokens:        EstimateTokensByWords(section),
			FilePath:      filePath,
			Heading:       h.text,
			HeadingDepth:  h.depth,
			HeadingPath:   h.path,
			Anchors:       anchors,
			PrimaryAnchor: anchors[0],
			Code:          isMostlyCode(section),
		})
	}

	for i, ch := range chunks {
		ch.Ordinal = i
	}
	return chunks
}

// parseHeadings scans content line by line, skipping fenced code blocks,
// and records every heading with its byte offset, hierarchical path, and
// (for in-range headings) a document-unique slug.
func (c *MarkdownChunker) parseHeadings(content string) []*heading {
	var headings []*heading
	var stack [6]string
	slugCounts := make(map[string]int)

	offset := 0
	inFence := false
	for _, line := range strings.SplitAfter(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			if m := headingLine.FindStringSubmatch(strings.TrimRight(line, "\n")); m != nil {
				depth := len(m[1])
				text := m[2]

				stack[depth-1] = text
				for i := depth; i < 6; i++ {
					stack[i] = ""
				}
				var parts []string
				for i := 0; i < depth; i++ {
					if stack[i] != "" {
						parts = append(parts, stack[i])
					}
				}

				h := &heading{
					offset:  offset,
					depth:   depth,
					text:    text,
					path:    strings.Join(parts, " > "),
					inRange: depth >= c.minDepth && depth <= c.maxDepth,
				}
				if h.inRange {
					h.slug = uniqueSlug(slugify(text), slugCounts)
				}
				headings = append(headings, h)
			}
		}
		offset += len(line)
	}
	return headings
}

// subtreeAnchors collects the slugs of heading i and every deeper in-range
// heading until the next heading at the same or a shallower depth. This
// keeps deep links working for nested sub-headings whose text lives in a
// later chunk.
func subtreeAnchors(inRange []*heading, i int) []string {
	anchors := []string{inRange[i].slug}
	for j := i + 1; j < len(inRange); j++ {
		if inRange[j].depth <= inRange[i].depth {
			break
		}
		anchors = append(anchors, inRange[j].slug)
	}
	return anchors
}

// sectionBody returns the section text with its heading line removed.
func sectionBody(section string) string {
	if _, rest, found := strings.Cut(section, "\n"); found {
		return strings.TrimSpace(rest)
	}
	return ""
}

// isMostlyCode reports whether more than half of the section's lines sit
// inside fenced code blocks.
func isMostlyCode(section string) bool {
	lines := strings.Split(section, "\n")
	inFence := false
	fenced := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			fenced++
			continue
		}
		if inFence {
			fenced++
		}
	}
	return fenced*2 > len(lines)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9 _-]`)

// slugify converts a heading to a GitHub-style anchor slug.
func slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "-")
	if s == "" {
		s = "section"
	}
	return s
}

// uniqueSlug resolves slug collisions by appending an incrementing suffix
// in document order: the second "usage" heading becomes "usage-1".
func uniqueSlug(base string, counts map[string]int) string {
	n := counts[base]
	counts[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
