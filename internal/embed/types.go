// Package embed obtains one vector per chunk, either from a remote HTTP
// embedding service or from a placeholder generator that keeps the pack
// schema intact without semantic content.
package embed

import (
	"context"
	"time"
)

// Common embedding constants.
const (
	// DefaultBatchSize is the default number of texts per request.
	DefaultBatchSize = 32

	// MaxBatchSize caps request size to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultTimeout bounds each embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultInterBatchDelay is the pause between batches, throttling
	// request rate against local services.
	DefaultInterBatchDelay = 10 * time.Millisecond

	// DefaultDimension is the vector width used when nothing is configured.
	DefaultDimension = 384
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result
	// always has exactly one vector per input text; any deviation from
	// the service is surfaced as an error instead.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension, or 0 when it is not yet
	// known (remote service without a configured dimension).
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}
