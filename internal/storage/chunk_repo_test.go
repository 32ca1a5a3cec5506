package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func seedCorpus(t *testing.T, db *sql.DB) {
	t.Helper()
	docs := []DocumentRecord{
		{Name: "cardio", Hash: "h1", Mode: "structured", Layout: "page-markers", ChunkCount: 2, ImageCount: 1},
		{Name: "renal", Hash: "h2", Mode: "fallback", Layout: "none", ChunkCount: 1},
	}
	chunks := []ChunkRecord{
		{ID: "cardio_chunk_0", DocumentName: "cardio", ChunkIndex: 0, Title: "Anatomy", PageID: "1-2", ContentType: "section", CharCount: 12, Images: []string{"_page_2_Figure_1.jpeg"}, Text: "Heart walls."},
		{ID: "cardio_chunk_1", DocumentName: "cardio", ChunkIndex: 1, Title: "Cardiac Cycle", PageID: "3", ContentType: "section", CharCount: 8, Oversized: true, Text: "Systole."},
		{ID: "renal_chunk_0", DocumentName: "renal", ChunkIndex: 0, Title: "Untitled Section 1", ContentType: "fallback-paragraph", CharCount: 8, Text: "Nephron."},
	}
	if err := NewManifest(db).ReplaceAll(context.Background(), docs, chunks); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
}

func TestChunkRepo_ListByDocument(t *testing.T) {
	db := newTestDB(t)
	seedCorpus(t, db)
	repo := NewChunkRepo(db)

	tests := []struct {
		name     string
		document string
		wantIDs  []string
	}{
		{name: "ordered by index", document: "cardio", wantIDs: []string{"cardio_chunk_0", "cardio_chunk_1"}},
		{name: "single chunk", document: "renal", wantIDs: []string{"renal_chunk_0"}},
		{name: "unknown document", document: "missing", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := repo.ListByDocument(context.Background(), tt.document)
			if err != nil {
				t.Fatalf("ListByDocument() error = %v", err)
			}
			ids := make([]string, len(chunks))
			for i, c := range chunks {
				ids[i] = c.ID
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("ListByDocument() ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestChunkRepo_GetByID(t *testing.T) {
	db := newTestDB(t)
	seedCorpus(t, db)
	repo := NewChunkRepo(db)

	got, err := repo.GetByID(context.Background(), "cardio_chunk_0")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	want := &ChunkRecord{
		ID: "cardio_chunk_0", DocumentName: "cardio", ChunkIndex: 0, Title: "Anatomy", PageID: "1-2",
		ContentType: "section", CharCount: 12, Images: []string{"_page_2_Figure_1.jpeg"}, Text: "Heart walls.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetByID() = %+v, want %+v", got, want)
	}

	got, err = repo.GetByID(context.Background(), "cardio_chunk_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.Oversized || len(got.Images) != 0 {
		t.Errorf("GetByID() oversized = %v, images = %v", got.Oversized, got.Images)
	}

	if _, err := repo.GetByID(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestChunkRepo_Count(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)

	if n, err := repo.Count(context.Background()); err != nil || n != 0 {
		t.Fatalf("Count() = %d, %v, want 0", n, err)
	}
	seedCorpus(t, db)
	if n, err := repo.Count(context.Background()); err != nil || n != 3 {
		t.Errorf("Count() = %d, %v, want 3", n, err)
	}
}
