package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"physiology-rag/internal/contextutil"
)

// ChromaStore implements VectorStore on a Chroma server. Chunk text is stored
// as the Chroma document; the rest of the metadata as scalar attributes.
type ChromaStore struct {
	client chromago.Client

	mu          sync.Mutex
	collections map[string]chromago.Collection
}

// NewChromaStore connects to the Chroma server at baseURL.
func NewChromaStore(baseURL string) (*ChromaStore, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	return &ChromaStore{client: client, collections: make(map[string]chromago.Collection)}, nil
}

// Close releases the client.
func (s *ChromaStore) Close() error {
	return s.client.Close()
}

func (s *ChromaStore) collection(ctx context.Context, name string) (chromago.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c, err := s.client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("created_by", "physiology-rag"),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	s.collections[name] = c
	return c, nil
}

// EnsureCollection creates the collection if needed. Chroma fixes the
// dimension on first insert, so vectorSize is not checked here.
func (s *ChromaStore) EnsureCollection(ctx context.Context, collection string, _ int) error {
	if _, err := s.collection(ctx, collection); err != nil {
		return indexErr("ensure", collection, err)
	}
	return nil
}

func (s *ChromaStore) Reset(ctx context.Context, collection string, vectorSize int) error {
	s.mu.Lock()
	delete(s.collections, collection)
	s.mu.Unlock()

	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		contextutil.LoggerFromContext(ctx).DebugContext(ctx, "delete collection before reset", "collection", collection, "error", err)
	}
	return s.EnsureCollection(ctx, collection, vectorSize)
}

func (s *ChromaStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	c, err := s.collection(ctx, collection)
	if err != nil {
		return indexErr("upsert", collection, err)
	}

	ids := make([]chromago.DocumentID, len(points))
	texts := make([]string, len(points))
	vecs := make([]embeddings.Embedding, len(points))
	metas := make([]chromago.DocumentMetadata, len(points))
	for i, p := range points {
		ids[i] = chromago.DocumentID(p.ID)
		texts[i] = MetaString(p.Meta, MetaText)
		vecs[i] = embeddings.NewEmbeddingFromFloat32(p.Vec)
		metas[i] = chromaMetadata(p)
	}

	err = c.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(vecs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return indexErr("upsert", collection, err)
	}
	return nil
}

// chromaMetadata flattens a point's metadata into Chroma attributes. Text is
// stored as the document and booleans as 0 or 1.
func chromaMetadata(p Point) chromago.DocumentMetadata {
	attrs := []*chromago.MetaAttribute{chromago.NewStringAttribute(MetaChunkID, p.ID)}
	for k, v := range p.Meta {
		switch val := v.(type) {
		case string:
			if k != MetaText {
				attrs = append(attrs, chromago.NewStringAttribute(k, val))
			}
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(k, int64(val)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(k, val))
		case bool:
			n := int64(0)
			if val {
				n = 1
			}
			attrs = append(attrs, chromago.NewIntAttribute(k, n))
		default:
			attrs = append(attrs, chromago.NewStringAttribute(k, fmt.Sprint(val)))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}

func (s *ChromaStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, indexErr("search", collection, errors.New("k must be greater than 0"))
	}
	c, err := s.collection(ctx, collection)
	if err != nil {
		return nil, indexErr("search", collection, err)
	}
	n, err := c.Count(ctx)
	if err != nil {
		return nil, indexErr("search", collection, err)
	}
	if n == 0 {
		return nil, indexErr("search", collection, ErrEmptyIndex)
	}

	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(query)),
		chromago.WithNResults(min(k, n)),
	}
	if len(filters) > 0 {
		clauses := make([]chromago.WhereClause, 0, len(filters))
		for key, value := range filters {
			clauses = append(clauses, chromago.EqString(key, value))
		}
		where := clauses[0]
		if len(clauses) > 1 {
			where = chromago.And(clauses...)
		}
		opts = append(opts, chromago.WithWhereQuery(where))
	}

	res, err := c.Query(ctx, opts...)
	if err != nil {
		return nil, indexErr("search", collection, err)
	}

	docGroups := res.GetDocumentsGroups()
	metaGroups := res.GetMetadatasGroups()
	distGroups := res.GetDistancesGroups()
	if len(docGroups) == 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(docGroups[0]))
	for i, doc := range docGroups[0] {
		meta := map[string]any{}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) && metaGroups[0][i] != nil {
			if raw, err := json.Marshal(metaGroups[0][i]); err == nil {
				_ = json.Unmarshal(raw, &meta)
			}
		}
		meta[MetaText] = doc.ContentString()

		var score float32
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			// Cosine distance to similarity.
			score = 1 - float32(distGroups[0][i])
		}
		results = append(results, SearchResult{ID: MetaString(meta, MetaChunkID), Score: score, Meta: meta})
	}
	return results, nil
}

func (s *ChromaStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	c, err := s.collection(ctx, collection)
	if err != nil {
		return indexErr("delete", collection, err)
	}
	docIDs := make([]chromago.DocumentID, len(ids))
	for i, id := range ids {
		docIDs[i] = chromago.DocumentID(id)
	}
	if err := c.Delete(ctx, chromago.WithIDsDelete(docIDs...)); err != nil {
		return indexErr("delete", collection, err)
	}
	return nil
}

func (s *ChromaStore) Count(ctx context.Context, collection string) (int, error) {
	c, err := s.collection(ctx, collection)
	if err != nil {
		return 0, indexErr("count", collection, err)
	}
	n, err := c.Count(ctx)
	if err != nil {
		return 0, indexErr("count", collection, err)
	}
	return n, nil
}
