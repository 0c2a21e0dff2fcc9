package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dshills/agentgraph-go/graph"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents and their embeddings in SQLite. Similarity is
// computed in process over the collection's rows, which suits knowledge bases
// of a few thousand documents per collection.
//
// Schema:
//   - knowledge_documents: one row per document, embedding stored as a
//     little-endian float32 blob
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (and if needed creates) a knowledge database at path.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	stmts := []string{
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS knowledge_documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			ref TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			locale TEXT NOT NULL DEFAULT '',
			dims INTEGER NOT NULL,
			embedding BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_collection ON knowledge_documents(collection_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize knowledge schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Add implements Writer.
func (s *SQLiteStore) Add(ctx context.Context, collectionID string, doc graph.Document, embedding []float32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var dims int
	err := s.db.QueryRowContext(ctx,
		`SELECT dims FROM knowledge_documents WHERE collection_id = ? LIMIT 1`, collectionID).Scan(&dims)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read collection: %w", err)
	case dims != len(embedding):
		return fmt.Errorf("%w: collection %s has %d, got %d", ErrDimensionMismatch, collectionID, dims, len(embedding))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO knowledge_documents (collection_id, title, body, ref, source, domain, locale, dims, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		collectionID, doc.Title, doc.Body, doc.Ref, doc.Source, doc.Domain, doc.Locale,
		len(embedding), encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// Match implements Store.
func (s *SQLiteStore) Match(ctx context.Context, collectionID string, embedding []float32, threshold float64, limit int) ([]Match, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT title, body, ref, source, domain, locale, embedding
		FROM knowledge_documents
		WHERE collection_id = ?
		ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []entry
	for rows.Next() {
		var e entry
		var blob []byte
		if err := rows.Scan(&e.doc.Title, &e.doc.Body, &e.doc.Ref, &e.doc.Source,
			&e.doc.Domain, &e.doc.Locale, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		e.vector = decodeVector(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}
	return rank(entries, embedding, threshold, limit), nil
}

// Close closes the database. Subsequent operations return ErrClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
