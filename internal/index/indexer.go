// Package index turns source files into pack rows. It wires extraction,
// normalization, chunking, and embedding into a single pipeline and
// writes the result through the pack store.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fluorite-labs/docpack/internal/chunk"
	"github.com/fluorite-labs/docpack/internal/embed"
	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
	"github.com/fluorite-labs/docpack/internal/extract"
	"github.com/fluorite-labs/docpack/internal/normalize"
	"github.com/fluorite-labs/docpack/internal/store"
)

// maxTitleLen caps the document title taken from the first content line.
const maxTitleLen = 140

// textualExtensions are read directly from disk when the extraction
// server is unavailable or not configured.
var textualExtensions = map[string]bool{
	".md":   true,
	".mdx":  true,
	".txt":  true,
	".html": true,
	".htm":  true,
}

// markdownExtensions get the structural chunker instead of the sliding
// window.
var markdownExtensions = map[string]bool{
	".md":  true,
	".mdx": true,
}

// Extractor converts raw document bytes to plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*extract.Result, error)
}

// Options configures an Indexer.
type Options struct {
	// Root is the directory repo-relative paths are computed against.
	Root string
	// SourceBase, when set, is prefixed to the repo-relative path to
	// build each document's source URL.
	SourceBase string
	// Docset labels every document written by this indexer.
	Docset string

	TargetTokens    int
	OverlapTokens   int
	HeadingMinDepth int
	HeadingMaxDepth int
}

// Result reports one indexed file.
type Result struct {
	Path     string
	RepoPath string
	Title    string
	Hash     string
	Mime     string
	DocID    int64
	Chunks   int
	Duration time.Duration
}

// Indexer runs the file-to-pack pipeline. A nil extractor restricts
// input to textual files; a nil embedder skips the embeddings table.
type Indexer struct {
	store     *store.PackStore
	extractor Extractor
	embedder  embed.Embedder
	opts      Options

	text     *chunk.TextChunker
	markdown *chunk.MarkdownChunker
}

// New creates an Indexer writing into st.
func New(st *store.PackStore, extractor Extractor, embedder embed.Embedder, opts Options) *Indexer {
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = chunk.DefaultTargetTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = chunk.DefaultOverlapTokens
	}
	return &Indexer{
		store:     st,
		extractor: extractor,
		embedder:  embedder,
		opts:      opts,
		text:      chunk.NewTextChunker(opts.TargetTokens, opts.OverlapTokens),
		markdown:  chunk.NewMarkdownChunker(opts.HeadingMinDepth, opts.HeadingMaxDepth),
	}
}

// IndexFile runs the full pipeline for one file and upserts the result.
// Re-indexing an unchanged file rewrites the same document row.
func (ix *Indexer) IndexFile(ctx context.Context, filePath string) (*Result, error) {
	started := time.Now()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.Newf(pkgerrors.ErrCodeFileNotFound, "file not found: %s", filePath)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err)
	}

	text, mime, err := ix.extractText(ctx, filePath, data)
	if err != nil {
		return nil, err
	}

	text = normalize.Text(text)
	if text == "" {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmptyText,
			"no text content in %s", filePath)
	}

	repoPath := ix.repoRelative(filePath)
	chunks := ix.chunkText(repoPath, filePath, text)
	if len(chunks) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeNoChunks,
			"chunking produced nothing for %s", filePath)
	}

	var vectors [][]byte
	dim := 0
	if ix.embedder != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		raw, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		dim = ix.embedder.Dimensions()
		vectors, err = embed.EncodeAll(raw, dim)
		if err != nil {
			return nil, err
		}
	}

	hash := sha256.Sum256(data)
	doc := &store.Document{
		Hash:      hex.EncodeToString(hash[:]),
		Title:     titleFrom(text),
		RepoPath:  repoPath,
		SourceURL: ix.sourceURL(repoPath),
		Mime:      mime,
		Docset:    ix.opts.Docset,
	}

	docID, count, err := ix.store.UpsertDocument(ctx, doc, chunks, vectors, dim)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:     filePath,
		RepoPath: repoPath,
		Title:    doc.Title,
		Hash:     doc.Hash,
		Mime:     mime,
		DocID:    docID,
		Chunks:   count,
		Duration: time.Since(started),
	}
	slog.Info("file_indexed",
		slog.String("path", repoPath),
		slog.Int("chunks", count),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// extractText routes through the extraction server when one is
// configured, reading textual files directly as a fallback.
func (ix *Indexer) extractText(ctx context.Context, filePath string, data []byte) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	if ix.extractor != nil {
		result, err := ix.extractor.Extract(ctx, data)
		if err == nil {
			return result.Text, result.Mime, nil
		}
		if !textualExtensions[ext] {
			return "", "", err
		}
		slog.Warn("extraction_fallback",
			slog.String("path", filePath),
			slog.String("error", err.Error()))
	}

	if !textualExtensions[ext] {
		return "", "", pkgerrors.Newf(pkgerrors.ErrCodeExtractFailed,
			"no extraction server configured and %s is not plain text", filePath)
	}
	if !utf8.Valid(data) {
		return "", "", pkgerrors.Newf(pkgerrors.ErrCodeExtractFailed,
			"%s is not valid UTF-8", filePath)
	}
	return string(data), mimeForExt(ext), nil
}

// chunkText picks the structural chunker for Markdown and the sliding
// window for everything else.
func (ix *Indexer) chunkText(repoPath, filePath, text string) []*chunk.Chunk {
	if markdownExtensions[strings.ToLower(filepath.Ext(filePath))] {
		return ix.markdown.Chunk(repoPath, text)
	}
	chunks := ix.text.Chunk(text)
	for _, c := range chunks {
		c.FilePath = repoPath
	}
	return chunks
}

// repoRelative makes filePath relative to the configured root, keeping
// forward slashes so paths are stable across platforms.
func (ix *Indexer) repoRelative(filePath string) string {
	if ix.opts.Root == "" {
		return filepath.ToSlash(filePath)
	}
	rel, err := filepath.Rel(ix.opts.Root, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(filePath)
	}
	return filepath.ToSlash(rel)
}

func (ix *Indexer) sourceURL(repoPath string) string {
	if ix.opts.SourceBase == "" {
		return ""
	}
	return strings.TrimRight(ix.opts.SourceBase, "/") + "/" + repoPath
}

// titleFrom takes the first non-empty line, without heading markers,
// truncated to a sane length.
func titleFrom(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line == "" {
			continue
		}
		if len(line) > maxTitleLen {
			cut := maxTitleLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			line = line[:cut]
		}
		return line
	}
	return ""
}

func mimeForExt(ext string) string {
	switch ext {
	case ".md", ".mdx":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	default:
		return "text/plain"
	}
}

var _ Extractor = (*extract.Client)(nil)
