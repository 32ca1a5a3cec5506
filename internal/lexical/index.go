// Package lexical provides keyword search over chunks and rank fusion with
// vector results.
package lexical

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve"
)

// ErrNotBuilt is returned when searching before Rebuild has run.
var ErrNotBuilt = errors.New("lexical index not built")

// Doc is the searchable view of a chunk.
type Doc struct {
	ID       string
	Document string
	Title    string
	Text     string
}

// Hit is one keyword search result, ranked from 1.
type Hit struct {
	ID    string
	Score float64
	Rank  int
}

// Index is an in-memory BM25 index. Rebuild swaps in a fresh index so
// searches never see a half-built corpus.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	owner map[string]string // chunk id -> document name
}

// New returns an empty, unbuilt index.
func New() *Index {
	return &Index{}
}

// Rebuild indexes docs into a new in-memory index and replaces the current one.
func (i *Index) Rebuild(ctx context.Context, docs []Doc) error {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create lexical index: %w", err)
	}

	owner := make(map[string]string, len(docs))
	batch := index.NewBatch()
	for n, d := range docs {
		if n%500 == 0 {
			if err := ctx.Err(); err != nil {
				_ = index.Close()
				return err
			}
		}
		owner[d.ID] = d.Document
		if err := batch.Index(d.ID, map[string]any{"title": d.Title, "text": d.Text}); err != nil {
			_ = index.Close()
			return fmt.Errorf("failed to index %s: %w", d.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return fmt.Errorf("failed to write lexical batch: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index, i.owner = index, owner
	i.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.owner)
}

// Search returns up to k chunks matching query. When document is not empty,
// only that document's chunks are returned.
func (i *Index) Search(ctx context.Context, query string, k int, document string) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return nil, ErrNotBuilt
	}
	if k <= 0 || len(i.owner) == 0 {
		return nil, nil
	}

	size := k * 3
	if document != "" {
		size = len(i.owner)
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), size, 0, false)
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]Hit, 0, k)
	for _, h := range res.Hits {
		if document != "" && i.owner[h.ID] != document {
			continue
		}
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Rank: len(hits) + 1})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index == nil {
		return nil
	}
	err := i.index.Close()
	i.index, i.owner = nil, nil
	return err
}
