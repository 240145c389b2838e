package embed

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of cached embeddings.
const DefaultCacheSize = 10000

// CachedEmbedder wraps an Embedder with an LRU cache keyed by text and
// model, so repeated chunks across re-index runs skip the network.
type CachedEmbedder struct {
	embedder Embedder
	cache    *lru.Cache[[32]byte, []float32]

	mu     sync.Mutex
	hits   int64
	misses int64
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps embedder with an LRU cache holding up to size
// vectors. size <= 0 uses DefaultCacheSize.
func NewCachedEmbedder(embedder Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[[32]byte, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{embedder: embedder, cache: cache}, nil
}

func (c *CachedEmbedder) key(text string) [32]byte {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(c.embedder.ModelName()))
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// Embed returns a cached vector when available, otherwise delegates.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.cache.Get(key); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return vec, nil
	}

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return vec, nil
}

// EmbedBatch serves cached entries and forwards only misses to the
// underlying embedder, preserving input order.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			results[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	c.mu.Lock()
	c.hits += int64(len(texts) - len(missing))
	c.misses += int64(len(missing))
	c.mu.Unlock()

	if len(missing) == 0 {
		return results, nil
	}

	vectors, err := c.embedder.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		idx := missingIdx[i]
		results[idx] = vec
		c.cache.Add(c.key(texts[idx]), vec)
	}

	return results, nil
}

// Stats returns cumulative cache hit and miss counts.
func (c *CachedEmbedder) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Dimensions returns the underlying embedder's vector width.
func (c *CachedEmbedder) Dimensions() int { return c.embedder.Dimensions() }

// ModelName returns the underlying embedder's model identifier.
func (c *CachedEmbedder) ModelName() string { return c.embedder.ModelName() }

// Close closes the underlying embedder.
func (c *CachedEmbedder) Close() error {
	hits, misses := c.Stats()
	if hits+misses > 0 {
		slog.Debug("embed_cache_stats",
			slog.Int64("hits", hits),
			slog.Int64("misses", misses))
	}
	return c.embedder.Close()
}
