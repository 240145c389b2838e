package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteEmbedder_EmbeddingsShape(t *testing.T) {
	var gotReq embedRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		vectors := make([][]float32, len(gotReq.Input))
		for i := range vectors {
			vectors[i] = []float32{1, 2, 3}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL, Model: "test-model", Dimension: 3})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vectors, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 2, 3}, vectors[0])
	assert.Equal(t, []string{"alpha", "beta"}, gotReq.Input)
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestRemoteEmbedder_DataShape(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2}},
				{"vector": []float32{0.3, 0.4}},
			},
		})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL, Dimension: 2})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDelta(t, 0.1, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.4, vectors[1][1], 1e-6)
}

func TestRemoteEmbedder_UnrecognizedShape(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []float32{1}})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeEmbedShape))
}

func TestRemoteEmbedder_CountMismatch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{1, 2}},
		})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeEmbedCount))
}

func TestRemoteEmbedder_DimensionMismatch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{1, 2, 3, 4, 5}},
		})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL, Dimension: 3})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeEmbedDimension))
}

func TestRemoteEmbedder_DimensionDetected(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{1, 2, 3, 4}},
		})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	require.Equal(t, 0, e.Dimensions())
	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 4, e.Dimensions())
}

func TestRemoteEmbedder_ServerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeEmbedFailed))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRemoteEmbedder_Timeout(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeEmbedTimeout))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestRemoteEmbedder_Batching(t *testing.T) {
	var batchSizes []int
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Input))
		vectors := make([][]float32, len(req.Input))
		for i := range vectors {
			vectors[i] = []float32{float32(i)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{
		Endpoint:        srv.URL,
		BatchSize:       2,
		InterBatchDelay: time.Millisecond,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestRemoteEmbedder_EmptyInput(t *testing.T) {
	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: "http://localhost:1"})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vectors, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestRemoteEmbedder_BearerToken(t *testing.T) {
	var gotAuth string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1}}})
	})

	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: srv.URL, APIKey: "secret-key"})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestRemoteEmbedder_RequiresEndpoint(t *testing.T) {
	_, err := NewRemoteEmbedder(RemoteConfig{})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeConfigInvalid))
}

func TestRemoteEmbedder_ClosedRejectsCalls(t *testing.T) {
	e, err := NewRemoteEmbedder(RemoteConfig{Endpoint: "http://localhost:1"})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
}
