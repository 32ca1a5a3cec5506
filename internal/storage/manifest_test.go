package storage

import (
	"context"
	"testing"
)

func TestDocumentRepo_List(t *testing.T) {
	db := newTestDB(t)
	seedCorpus(t, db)
	repo := NewDocumentRepo(db)

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("List() returned %d documents, want 2", len(docs))
	}
	if docs[0].Name != "cardio" || docs[0].ChunkCount != 2 || docs[0].ImageCount != 1 || docs[0].Layout != "page-markers" {
		t.Errorf("List()[0] = %+v", docs[0])
	}
	if docs[1].Name != "renal" || docs[1].Mode != "fallback" {
		t.Errorf("List()[1] = %+v", docs[1])
	}
	if docs[0].BuiltAt.IsZero() {
		t.Error("BuiltAt should be set")
	}
}

func TestDocumentRepo_GetByName(t *testing.T) {
	db := newTestDB(t)
	seedCorpus(t, db)
	repo := NewDocumentRepo(db)

	doc, err := repo.GetByName(context.Background(), "renal")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if doc.Hash != "h2" {
		t.Errorf("GetByName() hash = %s, want h2", doc.Hash)
	}
	if _, err := repo.GetByName(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("GetByName() error = %v, want ErrNotFound", err)
	}
}

func TestManifest_ReplaceAllReplacesEverything(t *testing.T) {
	db := newTestDB(t)
	seedCorpus(t, db)

	docs := []DocumentRecord{{Name: "neuro", Hash: "h3", Mode: "structured", Layout: "page-stats", ChunkCount: 1}}
	chunks := []ChunkRecord{{ID: "neuro_chunk_0", DocumentName: "neuro", Title: "Synapse", PageID: "4", ContentType: "section", CharCount: 5, Text: "Spike"}}
	if err := NewManifest(db).ReplaceAll(context.Background(), docs, chunks); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	list, err := NewDocumentRepo(db).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Name != "neuro" {
		t.Errorf("List() = %+v, want only neuro", list)
	}
	if n, _ := NewChunkRepo(db).Count(context.Background()); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestManifest_ReplaceAllIsAtomic(t *testing.T) {
	db := newTestDB(t)
	seedCorpus(t, db)

	// The chunk references a document that is not inserted, so the foreign key fails.
	docs := []DocumentRecord{{Name: "neuro", Hash: "h3", Mode: "structured", Layout: "none", ChunkCount: 1}}
	chunks := []ChunkRecord{{ID: "ghost_chunk_0", DocumentName: "ghost", ContentType: "section", Text: "x"}}
	if err := NewManifest(db).ReplaceAll(context.Background(), docs, chunks); err == nil {
		t.Fatal("ReplaceAll() expected foreign key error")
	}

	if n, _ := NewChunkRepo(db).Count(context.Background()); n != 3 {
		t.Errorf("Count() after failed replace = %d, want 3", n)
	}
	list, _ := NewDocumentRepo(db).List(context.Background())
	if len(list) != 2 {
		t.Errorf("List() after failed replace = %d documents, want 2", len(list))
	}
}
