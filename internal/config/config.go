// Package config resolves docpack configuration into an explicit value
// object passed to each component. Resolution order: built-in defaults,
// optional docpack.yaml, .env file, then DOCPACK_* environment variables.
// Chunkers and the pack store never read ambient state themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

// Defaults for every tunable knob.
const (
	DefaultExtractorURL     = "http://localhost:9998"
	DefaultExtractTimeout   = 60 * time.Second
	DefaultPackDir          = "packs"
	DefaultPackName         = "docpack.sqlite3"
	DefaultTargetTokens     = 800
	DefaultOverlapTokens    = 120
	DefaultEmbedDimension   = 384
	DefaultEmbedBatchSize   = 32
	DefaultEmbedTimeout     = 60 * time.Second
	DefaultHeadingMinDepth  = 2
	DefaultHeadingMaxDepth  = 3
)

// ExtractorConfig configures the external text extraction service.
type ExtractorConfig struct {
	// URL is the base endpoint of the Tika-protocol extraction server.
	URL string `yaml:"url"`
	// Timeout bounds each extraction request.
	Timeout time.Duration `yaml:"timeout"`
}

// PackConfig resolves where the pack database file lives.
type PackConfig struct {
	// Path overrides Dir and Name when set.
	Path string `yaml:"path"`
	// Dir is the directory for generated packs (relative to Root).
	Dir string `yaml:"dir"`
	// Name is the logical pack filename; ".sqlite3" is appended when the
	// name carries no sqlite extension.
	Name string `yaml:"name"`
}

// ChunkConfig configures both chunkers.
type ChunkConfig struct {
	// TargetTokens is the plain-text chunk size target.
	TargetTokens int `yaml:"target_tokens"`
	// OverlapTokens is the plain-text inter-chunk overlap.
	OverlapTokens int `yaml:"overlap_tokens"`
	// HeadingMinDepth is the shallowest Markdown heading level that starts
	// a section.
	HeadingMinDepth int `yaml:"heading_min_depth"`
	// HeadingMaxDepth is the deepest Markdown heading level that starts a
	// section.
	HeadingMaxDepth int `yaml:"heading_max_depth"`
}

// EmbedConfig configures the embedding adapter. An empty Endpoint selects
// placeholder (zero-vector) embeddings.
type EmbedConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	// Dimension is the expected vector width. Zero adopts whatever width
	// the endpoint returns on the first response.
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	// Skip disables embeddings entirely; no embedding rows are written.
	Skip bool `yaml:"skip"`
}

// Config is the complete docpack configuration.
type Config struct {
	// Root is the repository root used for repo-relative paths.
	Root string `yaml:"root"`
	// SourceBase is the canonical source URL base; supports {commit} and
	// {ref} placeholders filled from git metadata.
	SourceBase string `yaml:"source_base"`

	Extractor ExtractorConfig `yaml:"extractor"`
	Pack      PackConfig      `yaml:"pack"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Embed     EmbedConfig     `yaml:"embed"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		Root: cwd,
		Extractor: ExtractorConfig{
			URL:     DefaultExtractorURL,
			Timeout: DefaultExtractTimeout,
		},
		Pack: PackConfig{
			Dir:  DefaultPackDir,
			Name: DefaultPackName,
		},
		Chunk: ChunkConfig{
			TargetTokens:    DefaultTargetTokens,
			OverlapTokens:   DefaultOverlapTokens,
			HeadingMinDepth: DefaultHeadingMinDepth,
			HeadingMaxDepth: DefaultHeadingMaxDepth,
		},
		Embed: EmbedConfig{
			Dimension: DefaultEmbedDimension,
			BatchSize: DefaultEmbedBatchSize,
			Timeout:   DefaultEmbedTimeout,
		},
	}
}

// Load resolves the full configuration. configPath may be empty, in which
// case docpack.yaml in the working directory is used when present.
// A .env file in the working directory is loaded before environment
// variables are applied, without overriding variables already set.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		if _, err := os.Stat("docpack.yaml"); err == nil {
			configPath = "docpack.yaml"
		}
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeConfigInvalid,
				fmt.Errorf("read config file %s: %w", configPath, err))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeConfigInvalid,
				fmt.Errorf("parse config file %s: %w", configPath, err))
		}
	}

	// Missing .env is fine; godotenv never overrides existing env vars.
	_ = godotenv.Load()

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays DOCPACK_* environment variables on the config.
func (c *Config) applyEnv() {
	setString(&c.Root, "DOCPACK_ROOT")
	setString(&c.SourceBase, "DOCPACK_SOURCE_BASE")
	setString(&c.Extractor.URL, "DOCPACK_EXTRACTOR_URL")
	setDuration(&c.Extractor.Timeout, "DOCPACK_EXTRACTOR_TIMEOUT")
	setString(&c.Pack.Path, "DOCPACK_PACK_PATH")
	setString(&c.Pack.Dir, "DOCPACK_PACK_DIR")
	setString(&c.Pack.Name, "DOCPACK_PACK_NAME")
	setInt(&c.Chunk.TargetTokens, "DOCPACK_CHUNK_TOKENS")
	setInt(&c.Chunk.OverlapTokens, "DOCPACK_CHUNK_OVERLAP")
	setString(&c.Embed.Endpoint, "DOCPACK_EMBED_ENDPOINT")
	setString(&c.Embed.Model, "DOCPACK_EMBED_MODEL")
	setString(&c.Embed.APIKey, "DOCPACK_EMBED_KEY")
	setInt(&c.Embed.Dimension, "DOCPACK_EMBED_DIM")
	setInt(&c.Embed.BatchSize, "DOCPACK_EMBED_BATCH")
	setDuration(&c.Embed.Timeout, "DOCPACK_EMBED_TIMEOUT")
	setBool(&c.Embed.Skip, "DOCPACK_EMBED_SKIP")
}

// Validate checks every numeric knob; violations abort the run.
func (c *Config) Validate() error {
	if c.Extractor.Timeout <= 0 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"extractor timeout must be positive, got %s", c.Extractor.Timeout)
	}
	if c.Chunk.TargetTokens <= 0 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"chunk target tokens must be a positive integer, got %d", c.Chunk.TargetTokens)
	}
	if c.Chunk.OverlapTokens < 0 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"chunk overlap tokens must be non-negative, got %d", c.Chunk.OverlapTokens)
	}
	if c.Chunk.HeadingMinDepth < 1 || c.Chunk.HeadingMinDepth > 6 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"heading min depth must be 1-6, got %d", c.Chunk.HeadingMinDepth)
	}
	if c.Chunk.HeadingMaxDepth < c.Chunk.HeadingMinDepth || c.Chunk.HeadingMaxDepth > 6 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"heading max depth must be %d-6, got %d", c.Chunk.HeadingMinDepth, c.Chunk.HeadingMaxDepth)
	}
	if c.Embed.Dimension < 0 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"embedding dimension must be non-negative, got %d", c.Embed.Dimension)
	}
	if c.Embed.BatchSize <= 0 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"embedding batch size must be a positive integer, got %d", c.Embed.BatchSize)
	}
	if c.Embed.Timeout <= 0 {
		return pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"embedding timeout must be positive, got %s", c.Embed.Timeout)
	}
	return nil
}

// PackPath resolves the absolute pack file location from Path or Dir+Name.
func (c *Config) PackPath() string {
	if c.Pack.Path != "" {
		if filepath.IsAbs(c.Pack.Path) {
			return c.Pack.Path
		}
		abs, err := filepath.Abs(c.Pack.Path)
		if err != nil {
			return c.Pack.Path
		}
		return abs
	}

	name := c.Pack.Name
	if name == "" {
		name = DefaultPackName
	}
	if ext := filepath.Ext(name); ext != ".sqlite" && ext != ".sqlite3" {
		name += ".sqlite3"
	}
	if filepath.IsAbs(name) {
		return name
	}

	dir := c.Pack.Dir
	if dir == "" {
		dir = DefaultPackDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Root, dir)
	}
	return filepath.Join(dir, name)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// setDuration accepts either a Go duration string ("90s") or a plain
// millisecond count for parity with the original env contract.
func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
