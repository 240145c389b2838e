// Package store persists documents, chunks, full-text rows, and
// embedding vectors into a single-file SQLite pack.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/fluorite-labs/docpack/internal/chunk"
	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

// Document is the per-source-file metadata row. Hash identifies the
// document across runs; everything else is replaceable metadata.
type Document struct {
	Hash        string
	Title       string
	RepoPath    string
	SourceURL   string
	Mime        string
	Lang        string
	Version     string
	Docset      string
	PublishedAt string
	FetchedAt   string
}

// Stats summarizes pack contents.
type Stats struct {
	Documents  int64
	Chunks     int64
	Embeddings int64
}

// PackStore is a single-file SQLite pack. One process holds the pack at
// a time; Open takes an advisory lock next to the database file.
type PackStore struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	mu     sync.Mutex
	closed bool
}

// Open creates or opens the pack at path. The parent directory is
// created if missing. Returns a lock error when another process holds
// the pack.
func Open(path string) (*PackStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeStoreOpen,
			fmt.Sprintf("failed to create pack directory %s", dir), err)
	}

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeStoreOpen,
			"failed to acquire pack lock", err)
	}
	if !locked {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeStoreLocked,
			"pack %s is locked by another process", path)
	}

	// _busy_timeout handles lock contention gracefully
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = fileLock.Unlock()
		return nil, pkgerrors.New(pkgerrors.ErrCodeStoreOpen,
			"failed to open pack database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite; DSN params
	// may be ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			_ = fileLock.Unlock()
			return nil, pkgerrors.New(pkgerrors.ErrCodeStoreOpen,
				"failed to set pragma", err)
		}
	}

	s := &PackStore{db: db, path: path, lock: fileLock}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		_ = fileLock.Unlock()
		return nil, pkgerrors.New(pkgerrors.ErrCodeStoreOpen,
			"failed to initialize pack schema", err)
	}

	slog.Debug("pack_opened", slog.String("path", path))
	return s, nil
}

// initSchema creates the pack tables. Idempotent so reopening an
// existing pack is safe.
func (s *PackStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id           INTEGER PRIMARY KEY,
		hash         TEXT NOT NULL UNIQUE,
		title        TEXT,
		repo_path    TEXT,
		source_url   TEXT,
		mime         TEXT,
		lang         TEXT,
		version      TEXT,
		docset       TEXT,
		published_at TEXT,
		fetched_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id           INTEGER PRIMARY KEY,
		document_id  INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		ordinal        INTEGER NOT NULL,
		text           TEXT NOT NULL,
		token_count    INTEGER,
		heading_path   TEXT,
		anchors        TEXT,
		primary_anchor TEXT,
		code           INTEGER NOT NULL DEFAULT 0,
		page_no        INTEGER,
		UNIQUE(document_id, ordinal)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

	-- External content FTS table kept in lockstep with chunks inside
	-- the same transaction.
	CREATE VIRTUAL TABLE IF NOT EXISTS chunk_fts USING fts5(
		text,
		content='chunks',
		content_rowid='id',
		tokenize='unicode61'
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		chunk_id  INTEGER PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
		vector    BLOB NOT NULL,
		dimension INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertDocument writes one document and its chunks. An existing
// document with the same hash keeps its id; its metadata is updated and
// its chunk, FTS, and embedding rows are replaced in one transaction.
// vectors may be nil to skip embeddings, otherwise it must hold one
// dim-wide encoded vector per chunk.
func (s *PackStore) UpsertDocument(ctx context.Context, doc *Document, chunks []*chunk.Chunk, vectors [][]byte, dim int) (int64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, 0, pkgerrors.Newf(pkgerrors.ErrCodeStoreWrite, "pack store is closed")
	}
	if doc.Hash == "" {
		return 0, 0, pkgerrors.Newf(pkgerrors.ErrCodeStoreValidation, "document hash is required")
	}
	if vectors != nil {
		if len(vectors) != len(chunks) {
			return 0, 0, pkgerrors.Newf(pkgerrors.ErrCodeStoreValidation,
				"%d vectors for %d chunks", len(vectors), len(chunks))
		}
		for i, v := range vectors {
			if len(v) != dim*4 {
				return 0, 0, pkgerrors.Newf(pkgerrors.ErrCodeStoreValidation,
					"vector %d is %d bytes, expected %d for dimension %d", i, len(v), dim*4, dim)
			}
		}
	}

	fetchedAt := doc.FetchedAt
	if fetchedAt == "" {
		fetchedAt = time.Now().UTC().Format(time.RFC3339)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	docID, err := s.upsertDocRow(ctx, tx, doc, fetchedAt)
	if err != nil {
		return 0, 0, err
	}

	if err := s.clearDocumentRows(ctx, tx, docID); err != nil {
		return 0, 0, err
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, ordinal, text, token_count, heading_path, anchors, primary_anchor, code, page_no)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to prepare chunk insert", err)
	}
	defer func() { _ = chunkStmt.Close() }()

	ftsStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunk_fts (rowid, text) VALUES (?, ?)`)
	if err != nil {
		return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to prepare FTS insert", err)
	}
	defer func() { _ = ftsStmt.Close() }()

	var embStmt *sql.Stmt
	if vectors != nil {
		embStmt, err = tx.PrepareContext(ctx,
			`INSERT INTO embeddings (chunk_id, vector, dimension) VALUES (?, ?, ?)`)
		if err != nil {
			return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to prepare embedding insert", err)
		}
		defer func() { _ = embStmt.Close() }()
	}

	for i, c := range chunks {
		var pageNo any
		if c.PageNo > 0 {
			pageNo = c.PageNo
		}
		res, err := chunkStmt.ExecContext(ctx, docID, c.Ordinal, c.Text, c.Tokens,
			nullIfEmpty(c.HeadingPath), nullIfEmpty(strings.Join(c.Anchors, ",")),
			nullIfEmpty(c.PrimaryAnchor), boolToInt(c.Code), pageNo)
		if err != nil {
			return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite,
				fmt.Sprintf("failed to insert chunk %d", c.Ordinal), err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to read chunk rowid", err)
		}

		if _, err := ftsStmt.ExecContext(ctx, chunkID, c.Text); err != nil {
			return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite,
				fmt.Sprintf("failed to index chunk %d", c.Ordinal), err)
		}

		if vectors != nil {
			if _, err := embStmt.ExecContext(ctx, chunkID, vectors[i], dim); err != nil {
				return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite,
					fmt.Sprintf("failed to store embedding for chunk %d", c.Ordinal), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to commit document", err)
	}

	slog.Debug("document_upserted",
		slog.Int64("doc_id", docID),
		slog.String("repo_path", doc.RepoPath),
		slog.Int("chunks", len(chunks)))
	return docID, len(chunks), nil
}

// upsertDocRow inserts the document or updates the metadata of the row
// with the same hash, keeping its id stable.
func (s *PackStore) upsertDocRow(ctx context.Context, tx *sql.Tx, doc *Document, fetchedAt string) (int64, error) {
	var docID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE hash = ?`, doc.Hash).Scan(&docID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (hash, title, repo_path, source_url, mime, lang, version, docset, published_at, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.Hash, nullIfEmpty(doc.Title), nullIfEmpty(doc.RepoPath), nullIfEmpty(doc.SourceURL),
			nullIfEmpty(doc.Mime), nullIfEmpty(doc.Lang), nullIfEmpty(doc.Version),
			nullIfEmpty(doc.Docset), nullIfEmpty(doc.PublishedAt), fetchedAt)
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to insert document", err)
		}
		docID, err = res.LastInsertId()
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to read document id", err)
		}
		return docID, nil
	case err != nil:
		return 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to look up document", err)
	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET title = ?, repo_path = ?, source_url = ?, mime = ?, lang = ?,
			    version = ?, docset = ?, published_at = ?, fetched_at = ?
			WHERE id = ?`,
			nullIfEmpty(doc.Title), nullIfEmpty(doc.RepoPath), nullIfEmpty(doc.SourceURL),
			nullIfEmpty(doc.Mime), nullIfEmpty(doc.Lang), nullIfEmpty(doc.Version),
			nullIfEmpty(doc.Docset), nullIfEmpty(doc.PublishedAt), fetchedAt, docID)
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to update document", err)
		}
		return docID, nil
	}
}

// clearDocumentRows removes the previous chunk, FTS, and embedding rows
// for a document. FTS rows must go before the chunks they shadow; the
// external content table reads the chunk text to unindex it.
func (s *PackStore) clearDocumentRows(ctx context.Context, tx *sql.Tx, docID int64) error {
	steps := []string{
		`DELETE FROM embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`,
		`DELETE FROM chunk_fts WHERE rowid IN (SELECT id FROM chunks WHERE document_id = ?)`,
		`DELETE FROM chunks WHERE document_id = ?`,
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt, docID); err != nil {
			return pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to clear previous document rows", err)
		}
	}
	return nil
}

// GetDocumentByHash returns the document id for hash, or false.
func (s *PackStore) GetDocumentByHash(ctx context.Context, hash string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE hash = ?`, hash).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to query document", err)
	}
	return id, true, nil
}

// Stats counts the pack's rows.
func (s *PackStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM documents`, &stats.Documents},
		{`SELECT COUNT(*) FROM chunks`, &stats.Chunks},
		{`SELECT COUNT(*) FROM embeddings`, &stats.Embeddings},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, pkgerrors.New(pkgerrors.ErrCodeStoreWrite, "failed to read pack stats", err)
		}
	}
	return stats, nil
}

// Path returns the pack file path.
func (s *PackStore) Path() string { return s.path }

// Close checkpoints the WAL, closes the database, and releases the
// advisory lock.
func (s *PackStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	// Fold the WAL into the main file so the pack ships as one file.
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")

	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	slog.Debug("pack_closed", slog.String("path", s.path))
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
