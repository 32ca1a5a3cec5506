package vectorstore

import (
	"context"
	"errors"
	"os"
	"testing"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
)

func TestChromaStore_EmptyInputsReturnEarly(t *testing.T) {
	ctx := context.Background()
	store := &ChromaStore{collections: map[string]chromago.Collection{}}

	if err := store.Upsert(ctx, "c", nil); err != nil {
		t.Errorf("Upsert(nil) error = %v", err)
	}
	if err := store.Delete(ctx, "c", nil); err != nil {
		t.Errorf("Delete(nil) error = %v", err)
	}
	if _, err := store.Search(ctx, "c", []float32{1}, 0, nil); err == nil {
		t.Error("Search() with k=0 should fail")
	}
}

// TestChromaStore_Integration runs against a live server when CHROMA_TEST_URL is set.
func TestChromaStore_Integration(t *testing.T) {
	url := os.Getenv("CHROMA_TEST_URL")
	if url == "" {
		t.Skip("CHROMA_TEST_URL not set")
	}
	store, err := NewChromaStore(url)
	if err != nil {
		t.Fatalf("NewChromaStore() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	const collection = "physiology_rag_test"
	if err := store.Reset(ctx, collection, 3); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := store.Search(ctx, collection, []float32{1, 0, 0}, 3, nil); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Search() on empty collection = %v, want ErrEmptyIndex", err)
	}

	points := []Point{
		{ID: "doc_chunk_0", Vec: []float32{1, 0, 0}, Meta: map[string]any{MetaDocument: "doc", MetaTitle: "A", MetaChunkIndex: 0, MetaOversized: false, MetaText: "a"}},
		{ID: "doc_chunk_1", Vec: []float32{0, 1, 0}, Meta: map[string]any{MetaDocument: "doc", MetaTitle: "B", MetaChunkIndex: 1, MetaOversized: true, MetaText: "b"}},
	}
	if err := store.Upsert(ctx, collection, points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n, err := store.Count(ctx, collection); err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
	results, err := store.Search(ctx, collection, []float32{1, 0.1, 0}, 1, map[string]string{MetaDocument: "doc"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "doc_chunk_0" || MetaString(results[0].Meta, MetaText) != "a" {
		t.Errorf("Search() = %+v", results)
	}
}
