package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

// RemoteConfig configures the remote embedding service client.
type RemoteConfig struct {
	// Endpoint is the full URL of the embedding endpoint. Required.
	Endpoint string
	// Model is sent with each request when non-empty.
	Model string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Dimension is the expected vector width. When positive, every
	// returned vector must match it exactly. 0 accepts any width and
	// adopts the first observed one.
	Dimension int
	// BatchSize is the number of texts per request (default 32, max 256).
	BatchSize int
	// Timeout bounds each request (default 60s). A timed-out request is a
	// hard failure; no partial vector set is returned.
	Timeout time.Duration
	// InterBatchDelay is the pause between consecutive requests.
	InterBatchDelay time.Duration
}

// RemoteEmbedder calls an HTTP embedding service, one batched POST per
// BatchSize texts. It accepts the two common response shapes:
//
//	{"embeddings": [[...], ...]}
//	{"data": [{"embedding": [...]}, ...]}   (or "vector" per item)
//
// Anything else fails with a shape error.
type RemoteEmbedder struct {
	client *http.Client
	config RemoteConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

// Verify interface implementation at compile time.
var _ Embedder = (*RemoteEmbedder)(nil)

// NewRemoteEmbedder creates a remote embedder. The endpoint must be set;
// everything else has defaults.
func NewRemoteEmbedder(cfg RemoteConfig) (*RemoteEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeConfigInvalid,
			"embedding endpoint is required when embeddings are enabled")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.InterBatchDelay < 0 {
		cfg.InterBatchDelay = DefaultInterBatchDelay
	}

	// Per-request deadlines come from context.WithTimeout so a client-level
	// timeout would only fight them.
	return &RemoteEmbedder{
		client: &http.Client{},
		config: cfg,
		dims:   cfg.Dimension,
	}, nil
}

// embedRequest is the wire request: {"input": [...texts], "model": ...}.
type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

// embedResponse is the tagged union of accepted response shapes. Pointer
// fields distinguish an absent key from an empty array.
type embedResponse struct {
	Embeddings *[][]float32 `json:"embeddings"`
	Data       *[]embedItem `json:"data"`
}

type embedItem struct {
	Embedding []float32 `json:"embedding"`
	Vector    []float32 `json:"vector"`
}

// resolveVectors picks the vector list out of whichever shape the service
// returned.
func resolveVectors(resp *embedResponse) ([][]float32, error) {
	if resp.Embeddings != nil {
		return *resp.Embeddings, nil
	}
	if resp.Data != nil {
		vectors := make([][]float32, len(*resp.Data))
		for i, item := range *resp.Data {
			switch {
			case item.Embedding != nil:
				vectors[i] = item.Embedding
			case item.Vector != nil:
				vectors[i] = item.Vector
			default:
				return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmbedShape,
					"embedding response item %d missing 'embedding' or 'vector' array", i)
			}
		}
		return vectors, nil
	}
	return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmbedShape,
		"embedding response missing 'embeddings' or 'data' field")
}

// Embed generates the embedding for a single text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for texts, one request per BatchSize
// slice, with a small pause between requests. Any failure aborts the
// whole call; no partial vector set is returned.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := e.embedOne(ctx, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, vectors...)

		if end < len(texts) && e.config.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.config.InterBatchDelay):
			}
		}
	}

	return results, nil
}

// embedOne performs a single batched request and validates the result.
func (e *RemoteEmbedder) embedOne(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Input: batch, Model: e.config.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return nil, pkgerrors.New(pkgerrors.ErrCodeEmbedTimeout,
				fmt.Sprintf("embedding request to %s timed out after %s", e.config.Endpoint, e.config.Timeout), err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeEmbedFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmbedFailed,
			"embedding request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeEmbedShape,
			"failed to decode embedding response", err)
	}

	vectors, err := resolveVectors(&parsed)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(batch) {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmbedCount,
			"embedding service returned %d vectors for batch of %d texts", len(vectors), len(batch))
	}

	for i, v := range vectors {
		if e.config.Dimension > 0 && len(v) != e.config.Dimension {
			return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmbedDimension,
				"vector %d has %d dimensions, expected %d", i, len(v), e.config.Dimension)
		}
	}

	// Adopt the observed dimension when none was configured.
	if e.config.Dimension == 0 && len(vectors) > 0 {
		e.mu.Lock()
		if e.dims == 0 {
			e.dims = len(vectors[0])
			slog.Debug("embedding_dimension_detected", slog.Int("dimension", e.dims))
		}
		e.mu.Unlock()
	}

	return vectors, nil
}

// Dimensions returns the configured or first-observed vector width.
func (e *RemoteEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *RemoteEmbedder) ModelName() string {
	if e.config.Model != "" {
		return e.config.Model
	}
	return "remote"
}

// Close releases resources.
func (e *RemoteEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
