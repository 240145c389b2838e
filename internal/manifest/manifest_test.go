package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_RoundTrip(t *testing.T) {
	m := New("/packs/docs.sqlite3")
	m.Docset = "guide"
	m.Commit = "abc123"
	m.Stats = Stats{Documents: 3, Chunks: 12, Embeddings: 12}
	m.Embedding = Embedding{Model: "all-minilm", Dimension: 384}
	m.Files = []FileEntry{{Path: "docs/a.md", Hash: "deadbeef", Chunks: 4}}

	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, "docs.sqlite3", m.Pack)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, m.Write(path))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, int64(12), loaded.Stats.Chunks)
	require.Len(t, loaded.Files, 1)
	assert.Equal(t, "docs/a.md", loaded.Files[0].Path)
}

func TestManifest_UniqueRunIDs(t *testing.T) {
	a := New("p.sqlite3")
	b := New("p.sqlite3")
	assert.NotEqual(t, a.RunID, b.RunID)
}
