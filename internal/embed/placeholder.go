package embed

import (
	"context"
	"fmt"
	"sync"
)

// PlaceholderEmbedder produces zero-filled vectors of a fixed dimension.
// It is used when no remote embedding endpoint is configured, letting the
// pipeline run end-to-end with the full pack schema but no semantic
// search.
type PlaceholderEmbedder struct {
	dim int

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time.
var _ Embedder = (*PlaceholderEmbedder)(nil)

// NewPlaceholderEmbedder creates a placeholder embedder. A non-positive
// dimension falls back to the default.
func NewPlaceholderEmbedder(dim int) *PlaceholderEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &PlaceholderEmbedder{dim: dim}
}

// Embed returns a zero-filled vector.
func (e *PlaceholderEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	return make([]float32, e.dim), nil
}

// EmbedBatch returns one zero-filled vector per input text. It never
// fails while the embedder is open.
func (e *PlaceholderEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, e.dim)
	}
	return vectors, nil
}

// Dimensions returns the vector width.
func (e *PlaceholderEmbedder) Dimensions() int {
	return e.dim
}

// ModelName returns the model identifier.
func (e *PlaceholderEmbedder) ModelName() string {
	return "placeholder"
}

// Close releases resources.
func (e *PlaceholderEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
