// Package manifest describes what a build run put into a pack.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileEntry records one source file that went into the pack.
type FileEntry struct {
	Path   string `json:"path"`
	Hash   string `json:"hash"`
	Chunks int    `json:"chunks"`
}

// Stats mirrors the pack's row counts at the end of the run.
type Stats struct {
	Documents  int64 `json:"documents"`
	Chunks     int64 `json:"chunks"`
	Embeddings int64 `json:"embeddings"`
}

// Embedding records which model produced the pack's vectors.
type Embedding struct {
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
}

// Manifest is the JSON document written next to the pack after a build.
type Manifest struct {
	RunID     string      `json:"run_id"`
	CreatedAt string      `json:"created_at"`
	Pack      string      `json:"pack"`
	Docset    string      `json:"docset,omitempty"`
	Commit    string      `json:"commit,omitempty"`
	Ref       string      `json:"ref,omitempty"`
	Stats     Stats       `json:"stats"`
	Embedding Embedding   `json:"embedding"`
	Files     []FileEntry `json:"files"`
}

// New creates a manifest with a fresh run id and timestamp.
func New(packPath string) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Pack:      filepath.Base(packPath),
	}
}

// Write serializes the manifest to path as indented JSON.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Read loads a manifest from path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
