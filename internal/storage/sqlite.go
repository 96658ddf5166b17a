// Package storage persists the pipeline's durable state: documents and
// concept instances in SQLite, representation vectors in Qdrant. The
// SQLite side is the source of truth; the vector collection is a
// regeneratable index over it.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/conceptmap/conceptmap/internal/assign"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	title        TEXT NOT NULL,
	author       TEXT NOT NULL DEFAULT '',
	published_at TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	raw_text     TEXT NOT NULL,
	metadata     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id);

CREATE TABLE IF NOT EXISTS concept_instances (
	concept_id        TEXT NOT NULL,
	text_segment_id   TEXT NOT NULL,
	document_id       TEXT NOT NULL,
	confidence        REAL NOT NULL,
	assignment_method TEXT NOT NULL,
	keyword_score     REAL NOT NULL,
	embedding_score   REAL,
	text_length       INTEGER NOT NULL,
	text_preview      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (concept_id, text_segment_id)
);
CREATE INDEX IF NOT EXISTS idx_instances_document ON concept_instances(document_id);
`

// Store is the SQLite-backed document and instance store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL mode for better concurrency between the pipeline and the server.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SaveDocument inserts or replaces a document. Re-ingesting the same
// source/url pair overwrites the previous row, since the id is derived
// from both.
func (s *Store) SaveDocument(ctx context.Context, doc Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling document metadata: %w", err)
	}

	var published string
	if !doc.PublishedAt.IsZero() {
		published = doc.PublishedAt.Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents
			(id, source_id, title, author, published_at, url, raw_text, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SourceID, doc.Title, doc.Author, published, doc.URL, doc.RawText, string(metadata))
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document by id. Returns ErrDocumentNotFound
// when no row exists.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, title, author, published_at, url, raw_text, metadata
		FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns all documents, ordered by source then id for
// stable iteration.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, title, author, published_at, url, raw_text, metadata
		FROM documents ORDER BY source_id, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// SourceMap returns the document id → source id mapping for analysis
// joins.
func (s *Store) SourceMap(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_id FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("querying source map: %w", err)
	}
	defer rows.Close()

	sources := make(map[string]string)
	for rows.Next() {
		var id, source string
		if err := rows.Scan(&id, &source); err != nil {
			return nil, fmt.Errorf("scanning source map row: %w", err)
		}
		sources[id] = source
	}
	return sources, rows.Err()
}

// ReplaceInstances atomically replaces all stored instances for a concept
// with the given set. Assignment runs are whole-concept regenerations, so
// partial merges are never wanted.
func (s *Store) ReplaceInstances(ctx context.Context, conceptID string, instances []assign.ConceptInstance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM concept_instances WHERE concept_id = ?`, conceptID); err != nil {
		return fmt.Errorf("clearing instances for %s: %w", conceptID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO concept_instances
			(concept_id, text_segment_id, document_id, confidence, assignment_method,
			 keyword_score, embedding_score, text_length, text_preview)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing instance insert: %w", err)
	}
	defer stmt.Close()

	for _, inst := range instances {
		var embScore sql.NullFloat64
		if inst.Metadata.EmbeddingScore != nil {
			embScore = sql.NullFloat64{Float64: *inst.Metadata.EmbeddingScore, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			inst.ConceptID, inst.SegmentID, inst.DocumentID,
			inst.Confidence, string(inst.Method),
			inst.Metadata.KeywordScore, embScore,
			inst.Metadata.TextLength, inst.Metadata.TextPreview); err != nil {
			return fmt.Errorf("inserting instance %s/%s: %w", inst.ConceptID, inst.SegmentID, err)
		}
	}

	return tx.Commit()
}

// ListInstances returns all stored instances for a concept.
func (s *Store) ListInstances(ctx context.Context, conceptID string) ([]assign.ConceptInstance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT concept_id, text_segment_id, document_id, confidence, assignment_method,
		       keyword_score, embedding_score, text_length, text_preview
		FROM concept_instances WHERE concept_id = ? ORDER BY document_id, text_segment_id`, conceptID)
	if err != nil {
		return nil, fmt.Errorf("listing instances for %s: %w", conceptID, err)
	}
	defer rows.Close()

	var instances []assign.ConceptInstance
	for rows.Next() {
		var inst assign.ConceptInstance
		var method string
		var embScore sql.NullFloat64
		if err := rows.Scan(&inst.ConceptID, &inst.SegmentID, &inst.DocumentID,
			&inst.Confidence, &method,
			&inst.Metadata.KeywordScore, &embScore,
			&inst.Metadata.TextLength, &inst.Metadata.TextPreview); err != nil {
			return nil, fmt.Errorf("scanning instance row: %w", err)
		}
		inst.Method = assign.Method(method)
		if embScore.Valid {
			score := embScore.Float64
			inst.Metadata.EmbeddingScore = &score
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var doc Document
	var published, metadata string
	if err := row.Scan(&doc.ID, &doc.SourceID, &doc.Title, &doc.Author,
		&published, &doc.URL, &doc.RawText, &metadata); err != nil {
		return nil, err
	}

	if published != "" {
		t, err := time.Parse(time.RFC3339, published)
		if err == nil {
			doc.PublishedAt = t
		}
	}
	if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("parsing document metadata: %w", err)
	}

	return &doc, nil
}
