package index

import (
	"context"
	"log/slog"
	"time"
)

// FileError records one failed file in a batch run.
type FileError struct {
	Path string
	Err  error
}

// BatchResult summarizes a batch run. Failed files do not abort the
// run; they are collected here.
type BatchResult struct {
	Indexed     int
	TotalChunks int
	Failed      []FileError
	Duration    time.Duration
}

// IndexAll indexes files sequentially, continuing past per-file
// failures. Only context cancellation stops the run early.
func (ix *Indexer) IndexAll(ctx context.Context, files []string) (*BatchResult, error) {
	started := time.Now()
	result := &BatchResult{}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fileResult, err := ix.IndexFile(ctx, path)
		if err != nil {
			slog.Warn("file_index_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			result.Failed = append(result.Failed, FileError{Path: path, Err: err})
			continue
		}
		result.Indexed++
		result.TotalChunks += fileResult.Chunks
	}

	result.Duration = time.Since(started)
	slog.Info("batch_complete",
		slog.Int("indexed", result.Indexed),
		slog.Int("failed", len(result.Failed)),
		slog.Int("chunks", result.TotalChunks),
		slog.Duration("duration", result.Duration))
	return result, nil
}
