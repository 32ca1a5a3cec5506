package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks physiology-rag/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ChunkStore defines read access to persisted chunks.
type ChunkStore interface {
	// ListByDocument returns a document's chunks ordered by chunk_index.
	ListByDocument(ctx context.Context, documentName string) ([]ChunkRecord, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// Count returns the number of chunks in the corpus.
	Count(ctx context.Context) (int, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = "id, document_name, chunk_index, section_title, page_id, content_type, char_count, oversized, images, text"

// ListByDocument returns all chunks for a document, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentName string) ([]ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_name = ? ORDER BY chunk_index",
		documentName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := []ChunkRecord{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return chunks, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	chunk, err := scanChunk(r.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return chunk, err
}

// Count returns the number of chunks in the corpus.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func scanChunk(s scanner) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var images string
	err := s.Scan(&chunk.ID, &chunk.DocumentName, &chunk.ChunkIndex, &chunk.Title, &chunk.PageID,
		&chunk.ContentType, &chunk.CharCount, &chunk.Oversized, &images, &chunk.Text)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &chunk.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images of chunk %s: %w", chunk.ID, err)
	}
	return &chunk, nil
}
