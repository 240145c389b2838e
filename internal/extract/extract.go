// Package extract converts source documents to plain text through a
// Tika-protocol extraction service.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

// DefaultTimeout bounds a single extraction request.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

// Result is the extracted text plus the MIME type the service detected.
type Result struct {
	Text string
	Mime string
}

// Client talks to a Tika-compatible extraction server.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewClient creates an extraction client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Ping checks that the extraction server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return pkgerrors.New(pkgerrors.ErrCodeExtractFailed,
			fmt.Sprintf("extraction server at %s is not reachable", c.baseURL), err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.Newf(pkgerrors.ErrCodeExtractFailed,
			"extraction server at %s returned status %d", c.baseURL, resp.StatusCode)
	}
	return nil
}

// Extract sends raw document bytes to the server and returns the plain
// text it produced. The server detects the document format itself.
func (c *Client) Extract(ctx context.Context, data []byte) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, c.baseURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return nil, pkgerrors.New(pkgerrors.ErrCodeExtractTimeout,
				fmt.Sprintf("extraction timed out after %s", c.timeout), err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExtractFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeExtractFailed,
			"extraction failed with status %d: %s", resp.StatusCode, string(snippet))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExtractFailed, err)
	}

	text := string(body)
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeExtractEmpty,
			"extraction produced no text", nil)
	}

	mime := resp.Header.Get("X-Parsed-Content-Type")
	if mime == "" {
		mime = resp.Header.Get("Content-Type")
	}

	return &Result{Text: text, Mime: mime}, nil
}
