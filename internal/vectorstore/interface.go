package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks physiology-rag/internal/vectorstore VectorStore

import "context"

// Point is one chunk embedding with a copy of the chunk's metadata.
// ID is the chunk id; stores that need another key format derive it.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult is one similarity hit. ID is the chunk id and Score the cosine
// similarity, higher is closer.
type SearchResult struct {
	ID    string
	Score float32
	Meta  map[string]any
}

// VectorStore defines the interface for vector storage operations.
// Errors are returned as *IndexError.
type VectorStore interface {
	// EnsureCollection creates the collection if missing and validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Reset drops every point by recreating the collection.
	Reset(ctx context.Context, collection string, vectorSize int) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k nearest points, best first. Filters are exact
	// matches on string metadata fields. Searching an empty or missing
	// collection fails with ErrEmptyIndex.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error)

	// Delete removes points by chunk id.
	Delete(ctx context.Context, collection string, ids []string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)
}
