package vectorstore

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-process VectorStore using brute-force cosine similarity.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	size   int
	points map[string]Point
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, vectorSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[collection]; ok {
		if c.size != vectorSize {
			return indexErr("ensure", collection, fmt.Errorf("%w: expected %d, got %d", ErrVectorSize, vectorSize, c.size))
		}
		return nil
	}
	s.collections[collection] = &memCollection{size: vectorSize, points: make(map[string]Point)}
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, collection string, vectorSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = &memCollection{size: vectorSize, points: make(map[string]Point)}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return indexErr("upsert", collection, fmt.Errorf("collection does not exist"))
	}
	for _, p := range points {
		if len(p.Vec) != c.size {
			return indexErr("upsert", collection, fmt.Errorf("%w: point %s has %d dimensions, expected %d", ErrVectorSize, p.ID, len(p.Vec), c.size))
		}
	}
	for _, p := range points {
		c.points[p.ID] = Point{ID: p.ID, Vec: slices.Clone(p.Vec), Meta: p.Meta}
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, indexErr("search", collection, fmt.Errorf("k must be greater than 0"))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok || len(c.points) == 0 {
		return nil, indexErr("search", collection, ErrEmptyIndex)
	}

	results := make([]SearchResult, 0, len(c.points))
	for id, p := range c.points {
		if !matches(p.Meta, filters) {
			continue
		}
		results = append(results, SearchResult{ID: id, Score: cosine(query, p.Vec), Meta: p.Meta})
	}
	slices.SortFunc(results, func(a, b SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[collection]; ok {
		for _, id := range ids {
			delete(c.points, id)
		}
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.points), nil
	}
	return 0, nil
}

func matches(meta map[string]any, filters map[string]string) bool {
	for k, v := range filters {
		if MetaString(meta, k) != v {
			return false
		}
	}
	return true
}

// cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
