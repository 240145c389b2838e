package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

func TestClient_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/tika", r.URL.Path)
		require.Equal(t, "text/plain", r.Header.Get("Accept"))
		w.Header().Set("X-Parsed-Content-Type", "application/pdf")
		_, _ = w.Write([]byte("Extracted body text."))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	result, err := c.Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Extracted body text.", result.Text)
	assert.Equal(t, "application/pdf", result.Mime)
}

func TestClient_Extract_MimeFallsBackToContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	result, err := c.Extract(context.Background(), []byte("<html>"))
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=UTF-8", result.Mime)
}

func TestClient_Extract_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("   \n\t  "))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.Extract(context.Background(), []byte("data"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeExtractEmpty))
}

func TestClient_Extract_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.Extract(context.Background(), []byte("data"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeExtractFailed))
	assert.Contains(t, err.Error(), "status 422")
	// Error bodies are truncated so a huge response cannot flood the log.
	assert.Less(t, len(err.Error()), 700)
}

func TestClient_Extract_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 30*time.Millisecond)
	_, err := c.Extract(context.Background(), []byte("data"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeExtractTimeout))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/version", r.URL.Path)
		_, _ = w.Write([]byte("Apache Tika 2.9.0"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	require.NoError(t, c.Ping(context.Background()))
}

func TestClient_Ping_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 0)
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.ErrCodeExtractFailed))
}

func TestClient_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tika", r.URL.Path)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0)
	_, err := c.Extract(context.Background(), []byte("data"))
	require.NoError(t, err)
}
