package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks physiology-rag/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DocumentStore defines read access to the document manifest.
type DocumentStore interface {
	// List returns every document ordered by name.
	List(ctx context.Context) ([]DocumentRecord, error)
	// GetByName returns ErrNotFound if the document is not in the manifest.
	GetByName(ctx context.Context, name string) (*DocumentRecord, error)
}

// DocumentRepo implements DocumentStore on SQLite.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = "name, hash, mode, layout, chunk_count, image_count, built_at"

// List returns every document ordered by name.
func (r *DocumentRepo) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// GetByName gets a document by name. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByName(ctx context.Context, name string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE name = ?", name)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return doc, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*DocumentRecord, error) {
	var doc DocumentRecord
	var builtAt string
	err := s.Scan(&doc.Name, &doc.Hash, &doc.Mode, &doc.Layout, &doc.ChunkCount, &doc.ImageCount, &builtAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	doc.BuiltAt, err = parseTimestamp(builtAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// parseTimestamp accepts both formats the SQLite driver may return for DATETIME columns.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
