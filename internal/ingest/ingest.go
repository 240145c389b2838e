// Package ingest builds a docset pack out of a Markdown tree. It layers
// frontmatter metadata and source-URL templating on top of the
// single-file pipeline and emits a build manifest.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/fluorite-labs/docpack/internal/chunk"
	"github.com/fluorite-labs/docpack/internal/embed"
	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
	"github.com/fluorite-labs/docpack/internal/index"
	"github.com/fluorite-labs/docpack/internal/manifest"
	"github.com/fluorite-labs/docpack/internal/normalize"
	"github.com/fluorite-labs/docpack/internal/store"
)

// FrontMatter is the YAML block a docset page may start with. Every
// field overrides the corresponding derived document value.
type FrontMatter struct {
	Title       string `yaml:"title"`
	Docset      string `yaml:"docset"`
	Lang        string `yaml:"lang"`
	Version     string `yaml:"version"`
	PublishedAt string `yaml:"published_at"`
	SourceURL   string `yaml:"source_url"`
}

// Options configures a docset build.
type Options struct {
	// Root is the Markdown tree to ingest.
	Root string
	// SourceBase is the deep-link prefix. `{commit}` and `{ref}`
	// placeholders are filled from the git checkout at Root.
	SourceBase string
	// Docset labels the documents unless a page's frontmatter says
	// otherwise.
	Docset string
	// ManifestPath, when set, receives the build manifest JSON.
	ManifestPath string

	HeadingMinDepth int
	HeadingMaxDepth int
}

// Builder ingests a Markdown tree into a pack.
type Builder struct {
	store    *store.PackStore
	embedder embed.Embedder
	opts     Options
	chunker  *chunk.MarkdownChunker
}

// NewBuilder creates a docset builder. embedder may be nil to skip the
// embeddings table.
func NewBuilder(st *store.PackStore, embedder embed.Embedder, opts Options) *Builder {
	return &Builder{
		store:    st,
		embedder: embedder,
		opts:     opts,
		chunker:  chunk.NewMarkdownChunker(opts.HeadingMinDepth, opts.HeadingMaxDepth),
	}
}

// Build ingests every Markdown file under Root and returns the build
// manifest. Per-file failures are logged and skipped; the build fails
// only when nothing could be ingested.
func (b *Builder) Build(ctx context.Context) (*manifest.Manifest, error) {
	files, err := index.Discover(b.opts.Root, []string{".md", ".mdx"}, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err)
	}
	if len(files) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeFileNotFound,
			"no Markdown files under %s", b.opts.Root)
	}

	commit, ref := DetectGitHead(b.opts.Root)
	sourceBase := ExpandSourceBase(b.opts.SourceBase, commit, ref)

	hashes, err := HashFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	m := manifest.New(b.store.Path())
	m.Docset = b.opts.Docset
	m.Commit = commit
	m.Ref = ref
	if b.embedder != nil {
		m.Embedding = manifest.Embedding{
			Model:     b.embedder.ModelName(),
			Dimension: b.embedder.Dimensions(),
		}
	}

	failed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := b.ingestFile(ctx, path, sourceBase, hashes[path])
		if err != nil {
			failed++
			slog.Warn("ingest_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		m.Files = append(m.Files, *entry)
	}
	if len(m.Files) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeInternal,
			"all %d files failed to ingest", failed)
	}

	stats, err := b.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	m.Stats = manifest.Stats{
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
		Embeddings: stats.Embeddings,
	}

	if b.opts.ManifestPath != "" {
		if err := m.Write(b.opts.ManifestPath); err != nil {
			return nil, pkgerrors.New(pkgerrors.ErrCodeStoreWrite,
				"failed to write manifest", err)
		}
	}

	slog.Info("docset_built",
		slog.String("docset", b.opts.Docset),
		slog.Int("files", len(m.Files)),
		slog.Int("failed", failed),
		slog.Int64("chunks", m.Stats.Chunks))
	return m, nil
}

// ingestFile processes one Markdown page.
func (b *Builder) ingestFile(ctx context.Context, path, sourceBase, hash string) (*manifest.FileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err)
	}

	fm, body := SplitFrontMatter(string(data))
	body = normalize.Text(body)
	if body == "" {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmptyText, "no content in %s", path)
	}

	repoPath := b.repoRelative(path)
	chunks := b.chunker.Chunk(repoPath, body)
	if len(chunks) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeNoChunks, "no chunks from %s", path)
	}

	var vectors [][]byte
	dim := 0
	if b.embedder != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		raw, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		dim = b.embedder.Dimensions()
		vectors, err = embed.EncodeAll(raw, dim)
		if err != nil {
			return nil, err
		}
	}

	doc := &store.Document{
		Hash:        hash,
		Title:       b.title(fm, chunks, body),
		RepoPath:    repoPath,
		SourceURL:   b.sourceURL(fm, sourceBase, repoPath),
		Mime:        "text/markdown",
		Lang:        fm.Lang,
		Version:     fm.Version,
		Docset:      b.docset(fm),
		PublishedAt: fm.PublishedAt,
	}

	_, count, err := b.store.UpsertDocument(ctx, doc, chunks, vectors, dim)
	if err != nil {
		return nil, err
	}
	return &manifest.FileEntry{Path: repoPath, Hash: hash, Chunks: count}, nil
}

func (b *Builder) docset(fm FrontMatter) string {
	if fm.Docset != "" {
		return fm.Docset
	}
	return b.opts.Docset
}

func (b *Builder) title(fm FrontMatter, chunks []*chunk.Chunk, body string) string {
	if fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	}
	if len(chunks) > 0 && chunks[0].Heading != "" {
		return chunks[0].Heading
	}
	return ""
}

func (b *Builder) sourceURL(fm FrontMatter, sourceBase, repoPath string) string {
	if fm.SourceURL != "" {
		return fm.SourceURL
	}
	if sourceBase == "" {
		return ""
	}
	return strings.TrimRight(sourceBase, "/") + "/" + repoPath
}

func (b *Builder) repoRelative(path string) string {
	rel, err := filepath.Rel(b.opts.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// SplitFrontMatter parses an optional leading YAML block delimited by
// `---` lines. Malformed frontmatter is treated as content.
func SplitFrontMatter(content string) (FrontMatter, string) {
	var fm FrontMatter
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return fm, content
	}
	rest := content[strings.Index(content, "\n")+1:]
	endIdx := strings.Index(rest, "\n---")
	if endIdx < 0 {
		return fm, content
	}
	block := rest[:endIdx]
	after := rest[endIdx+len("\n---"):]
	if nl := strings.Index(after, "\n"); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = ""
	}
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return FrontMatter{}, content
	}
	return fm, after
}

// ExpandSourceBase fills {commit} and {ref} placeholders.
func ExpandSourceBase(base, commit, ref string) string {
	base = strings.ReplaceAll(base, "{commit}", commit)
	base = strings.ReplaceAll(base, "{ref}", ref)
	return base
}

// HashFiles computes sha256 content hashes for paths concurrently.
func HashFiles(ctx context.Context, paths []string) (map[string]string, error) {
	hashes := make(map[string]string, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	for _, path := range sorted {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err)
			}
			defer func() { _ = f.Close() }()

			h := sha256.New()
			if _, err := io.Copy(h, f); err != nil {
				return err
			}
			mu.Lock()
			hashes[path] = hex.EncodeToString(h.Sum(nil))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}
