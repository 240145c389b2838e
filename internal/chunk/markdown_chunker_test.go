package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_HeadingSections(t *testing.T) {
	c := NewMarkdownChunker(1, 2)
	content := "# A\n\ntext1\n\n## B\n\ntext2"

	chunks := c.Chunk("docs/a.md", content)
	require.Len(t, chunks, 2)

	// No intro chunk: the first in-range heading starts at offset 0.
	first := chunks[0]
	assert.Equal(t, 0, first.Ordinal)
	assert.Equal(t, "A", first.Heading)
	assert.Equal(t, 1, first.HeadingDepth)
	assert.Contains(t, first.Text, "text1")
	assert.NotContains(t, first.Text, "text2")
	// Nested in-range heading B is reachable through A's anchors.
	assert.Equal(t, []string{"a", "b"}, first.Anchors)
	assert.Equal(t, "a", first.PrimaryAnchor)

	second := chunks[1]
	assert.Equal(t, 1, second.Ordinal)
	assert.Equal(t, "B", second.Heading)
	assert.Equal(t, 2, second.HeadingDepth)
	assert.Contains(t, second.Text, "text2")
	assert.Equal(t, []string{"b"}, second.Anchors)
	assert.Equal(t, "b", second.PrimaryAnchor)

	for _, ch := range chunks {
		assert.Equal(t, "docs/a.md", ch.FilePath)
	}
}

func TestMarkdownChunker_IntroChunk(t *testing.T) {
	c := NewMarkdownChunker(2, 3)
	content := "Some intro prose before any section.\n\n## First\n\nbody\n"

	chunks := c.Chunk("readme.md", content)
	require.Len(t, chunks, 2)

	intro := chunks[0]
	assert.Equal(t, 0, intro.Ordinal)
	assert.Empty(t, intro.Heading)
	assert.Zero(t, intro.HeadingDepth)
	assert.Empty(t, intro.Anchors)
	assert.Equal(t, "Some intro prose before any section.", intro.Text)

	assert.Equal(t, 1, chunks[1].Ordinal)
	assert.Equal(t, "First", chunks[1].Heading)
}

func TestMarkdownChunker_DepthFiltering(t *testing.T) {
	c := NewMarkdownChunker(2, 3)
	content := "# Title\n\npreamble\n\n## Install\n\nsteps\n\n#### Detail\n\ndeep notes\n\n## Usage\n\nrun it\n"

	chunks := c.Chunk("guide.md", content)
	require.Len(t, chunks, 3)

	// "# Title" is out of range: its content folds into the intro.
	assert.Contains(t, chunks[0].Text, "# Title")
	assert.Contains(t, chunks[0].Text, "preamble")

	// "#### Detail" is out of range: it stays inside the Install section.
	assert.Equal(t, "Install", chunks[1].Heading)
	assert.Contains(t, chunks[1].Text, "deep notes")
	assert.Equal(t, []string{"install"}, chunks[1].Anchors)

	assert.Equal(t, "Usage", chunks[2].Heading)
}

func TestMarkdownChunker_HeadingPathUsesFullHierarchy(t *testing.T) {
	c := NewMarkdownChunker(2, 3)
	content := "# Guide\n\n## Install\n\nsteps\n\n### Linux\n\napt-get\n"

	chunks := c.Chunk("guide.md", content)
	require.Len(t, chunks, 3)
	// The out-of-range "# Guide" title becomes the intro.
	assert.Empty(t, chunks[0].Heading)
	assert.Equal(t, "Guide > Install", chunks[1].HeadingPath)
	assert.Equal(t, "Guide > Install > Linux", chunks[2].HeadingPath)

	// Install's subtree includes the nested Linux anchor.
	assert.Equal(t, []string{"install", "linux"}, chunks[1].Anchors)
}

func TestMarkdownChunker_SlugCollisions(t *testing.T) {
	c := NewMarkdownChunker(2, 2)
	content := "## Usage\n\none\n\n## Usage\n\ntwo\n\n## Usage\n\nthree\n"

	chunks := c.Chunk("u.md", content)
	require.Len(t, chunks, 3)
	assert.Equal(t, "usage", chunks[0].PrimaryAnchor)
	assert.Equal(t, "usage-1", chunks[1].PrimaryAnchor)
	assert.Equal(t, "usage-2", chunks[2].PrimaryAnchor)
}

func TestMarkdownChunker_SkipsEmptySections(t *testing.T) {
	c := NewMarkdownChunker(2, 2)
	content := "## Empty\n\n## Full\n\ncontent here\n"

	chunks := c.Chunk("e.md", content)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Full", chunks[0].Heading)
	assert.Equal(t, 0, chunks[0].Ordinal, "ordinals reassigned after skipping")
}

func TestMarkdownChunker_IgnoresHeadingsInCodeFences(t *testing.T) {
	c := NewMarkdownChunker(1, 6)
	content := "## Real\n\n```bash\n# not a heading\necho hi\n```\n"

	chunks := c.Chunk("f.md", content)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Real", chunks[0].Heading)
	assert.Equal(t, []string{"real"}, chunks[0].Anchors)
}

func TestMarkdownChunker_CodeFlag(t *testing.T) {
	c := NewMarkdownChunker(2, 2)
	content := "## Snippet\n\n```go\nfunc main() {}\nvar x = 1\nvar y = 2\n```\n\n## Prose\n\njust words here\nmore words\nand more\n"

	chunks := c.Chunk("s.md", content)
	require.Len(t, chunks, 2)
	assert.True(t, chunks[0].Code)
	assert.False(t, chunks[1].Code)
}

func TestMarkdownChunker_EmptyInput(t *testing.T) {
	c := NewMarkdownChunker(2, 3)
	assert.Nil(t, c.Chunk("x.md", ""))
	assert.Nil(t, c.Chunk("x.md", "  \n\n \t"))
}

func TestMarkdownChunker_NoHeadingsAtAll(t *testing.T) {
	c := NewMarkdownChunker(2, 3)
	chunks := c.Chunk("plain.md", "Just a paragraph.\n\nAnd another.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Empty(t, chunks[0].Heading)
	assert.Contains(t, chunks[0].Text, "And another.")
}

func TestMarkdownChunker_Deterministic(t *testing.T) {
	c := NewMarkdownChunker(2, 3)
	content := "intro\n\n## One\n\nalpha\n\n### Two\n\nbeta\n\n## Three\n\ngamma\n"

	first := c.Chunk("d.md", content)
	second := c.Chunk("d.md", content)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Getting Started", "getting-started"},
		{"API & Reference!", "api--reference"},
		{"snake_case stays", "snake_case-stays"},
		{"  Spaces  ", "spaces"},
		{"===", "section"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), "slugify(%q)", tt.in)
	}
}
