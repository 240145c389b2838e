package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

func TestPlaceholderEmbedder(t *testing.T) {
	e := NewPlaceholderEmbedder(4)
	defer func() { _ = e.Close() }()

	assert.Equal(t, 4, e.Dimensions())
	assert.Equal(t, "placeholder", e.ModelName())

	vec, err := e.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, vec)

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 4)
	}
}

func TestPlaceholderEmbedder_DefaultDimension(t *testing.T) {
	e := NewPlaceholderEmbedder(0)
	defer func() { _ = e.Close() }()
	assert.Equal(t, DefaultDimension, e.Dimensions())
}

func TestEncodeDecodeVector(t *testing.T) {
	original := []float32{1.5, -2.25, 0, 3.14159}

	buf := EncodeVector(original)
	assert.Len(t, buf, len(original)*4)

	decoded, err := DecodeVector(buf)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeVector_InvalidLength(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeEmbedDimension))
}

func TestEncodeAll(t *testing.T) {
	vectors := [][]float32{{1, 2}, {3, 4}}

	bufs, err := EncodeAll(vectors, 2)
	require.NoError(t, err)
	require.Len(t, bufs, 2)
	for _, buf := range bufs {
		assert.Len(t, buf, 8)
	}

	_, err = EncodeAll([][]float32{{1, 2, 3}}, 2)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeEmbedDimension))
}

func TestCachedEmbedder_BatchCacheHits(t *testing.T) {
	inner := &countingEmbedder{dim: 2}
	c, err := NewCachedEmbedder(inner, 100)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	first, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 2, inner.calls)

	second, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, first[0], second[0])

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(3), misses)
}

func TestCachedEmbedder_SingleEmbed(t *testing.T) {
	inner := &countingEmbedder{dim: 2}
	c, err := NewCachedEmbedder(inner, 100)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Embed(context.Background(), "x")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

// countingEmbedder records how many texts reached the backend.
type countingEmbedder struct {
	dim   int
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = make([]float32, c.dim)
		out[i][0] = float32(len(text))
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int   { return c.dim }
func (c *countingEmbedder) ModelName() string { return "counting" }
func (c *countingEmbedder) Close() error      { return nil }
