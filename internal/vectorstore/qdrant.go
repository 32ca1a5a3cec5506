package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"physiology-rag/internal/contextutil"
)

// QdrantStore implements VectorStore using Qdrant. Chunk ids are mapped to
// name-based UUIDs and kept in the payload under MetaChunkID.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// grpcAddress derives the gRPC host and port from the REST URL. The gRPC
// port is the HTTP port plus one, 6334 by default.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Upsert inserts or updates points in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		payload := make(map[string]any, len(point.Meta)+1)
		for k, v := range point.Meta {
			payload[k] = v
		}
		payload[MetaChunkID] = point.ID

		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return indexErr("upsert", collection, fmt.Errorf("invalid payload for %s: %w", point.ID, err))
		}
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointUUID(point.ID)),
			Vectors: qdrant.NewVectors(point.Vec...),
			Payload: values,
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return s.wrap("upsert", collection, err)
	}

	logger.DebugContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search performs a cosine similarity search with optional exact-match filters.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, indexErr("search", collection, fmt.Errorf("k must be greater than 0"))
	}

	limit := uint64(k)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filters) > 0 {
		must := make([]*qdrant.Condition, 0, len(filters))
		for key, value := range filters {
			must = append(must, qdrant.NewMatch(key, value))
		}
		queryReq.Filter = &qdrant.Filter{Must: must}
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, indexErr("search", collection, ErrEmptyIndex)
		}
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, s.wrap("search", collection, err)
	}

	if len(scoredPoints) == 0 {
		if n, err := s.Count(ctx, collection); err == nil && n == 0 {
			return nil, indexErr("search", collection, ErrEmptyIndex)
		}
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, result := range scoredPoints {
		meta := make(map[string]any)
		if result.Payload != nil {
			meta = convertPayloadToMap(result.Payload)
		}
		id := MetaString(meta, MetaChunkID)
		if id == "" && result.Id != nil {
			id = result.Id.GetUuid()
		}
		results = append(results, SearchResult{
			ID:    id,
			Score: result.Score,
			Meta:  meta,
		})
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// Delete removes points by chunk id.
func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	qdrantIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qdrantIDs = append(qdrantIDs, qdrant.NewID(PointUUID(id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(qdrantIDs...),
	})
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to delete points", "collection", collection, "count", len(ids), "error", err)
		return s.wrap("delete", collection, err)
	}
	return nil
}

// Count returns the exact number of points in the collection, or 0 if it does not exist.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return 0, s.wrap("count", collection, err)
	}
	if !exists {
		return 0, nil
	}
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, s.wrap("count", collection, err)
	}
	return int(n), nil
}

// Reset deletes the collection, if present, and creates it again empty.
func (s *QdrantStore) Reset(ctx context.Context, collection string, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return s.wrap("reset", collection, err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, collection); err != nil {
			return s.wrap("reset", collection, err)
		}
	}
	return s.EnsureCollection(ctx, collection, vectorSize)
}

// EnsureCollection ensures a collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
// If it doesn't exist, creates it with the specified vector size.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return s.wrap("ensure", collection, fmt.Errorf("failed to check collection existence: %w", err))
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return s.wrap("ensure", collection, fmt.Errorf("failed to create collection: %w", err))
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return s.wrap("ensure", collection, fmt.Errorf("failed to get collection info: %w", err))
	}

	var actualSize uint64
	if config := info.Config; config != nil && config.Params != nil {
		if vectorsConfig := config.Params.GetVectorsConfig(); vectorsConfig != nil {
			if params := vectorsConfig.GetParams(); params != nil {
				actualSize = params.Size
			}
		}
	}
	if actualSize == 0 {
		return indexErr("ensure", collection, errors.New("could not determine collection vector size"))
	}
	if int(actualSize) != vectorSize {
		return indexErr("ensure", collection, fmt.Errorf("%w: expected %d, got %d", ErrVectorSize, vectorSize, actualSize))
	}

	logger.DebugContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize)
	return nil
}

// wrap converts a client error into an IndexError, marking gRPC
// unavailability and deadlines as transient.
func (s *QdrantStore) wrap(op, collection string, err error) error {
	e := indexErr(op, collection, err).(*IndexError)
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		e.Transient = true
	}
	return e
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
