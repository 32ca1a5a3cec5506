package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_manifest_writer.go -package=mocks physiology-rag/internal/storage ManifestWriter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ManifestWriter replaces the persisted corpus.
type ManifestWriter interface {
	// ReplaceAll swaps the whole manifest for docs and chunks in one transaction.
	ReplaceAll(ctx context.Context, docs []DocumentRecord, chunks []ChunkRecord) error
}

// Manifest implements ManifestWriter on SQLite.
type Manifest struct {
	db *sql.DB
}

// NewManifest creates a new Manifest.
func NewManifest(db *sql.DB) *Manifest {
	return &Manifest{db: db}
}

// ReplaceAll deletes every document and chunk and inserts the new set. Either
// the whole corpus is replaced or nothing changes.
func (m *Manifest) ReplaceAll(ctx context.Context, docs []DocumentRecord, chunks []ChunkRecord) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (name, hash, mode, layout, chunk_count, image_count) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer func() {
		_ = docStmt.Close()
	}()
	for _, d := range docs {
		if _, err = docStmt.ExecContext(ctx, d.Name, d.Hash, d.Mode, d.Layout, d.ChunkCount, d.ImageCount); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.Name, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = chunkStmt.Close()
	}()
	for _, c := range chunks {
		images := c.Images
		if images == nil {
			images = []string{}
		}
		var encoded []byte
		encoded, err = json.Marshal(images)
		if err != nil {
			return fmt.Errorf("failed to encode images of chunk %s: %w", c.ID, err)
		}
		_, err = chunkStmt.ExecContext(ctx, c.ID, c.DocumentName, c.ChunkIndex, c.Title, c.PageID,
			c.ContentType, c.CharCount, c.Oversized, string(encoded), c.Text)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit manifest: %w", err)
	}
	return nil
}
