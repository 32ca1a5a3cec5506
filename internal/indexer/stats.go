package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"physiology-rag/internal/storage"
	"physiology-rag/internal/vectorstore"
)

// ChunkerVersion identifies the segmentation and packing rules.
// Update this when chunking logic changes significantly.
const ChunkerVersion = "v2.0"

// CorpusStats describes the persisted corpus.
type CorpusStats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	// VectorCount is the number of points in the vector collection. It is
	// lower than Chunks when embedding batches failed.
	VectorCount    int                  `json:"vector_count"`
	Oversized      int                  `json:"oversized_chunks"`
	FallbackDocs   int                  `json:"fallback_documents"`
	DocumentChunks []DocumentChunkCount `json:"document_chunks"`
	ChunkChars     ChunkCharStats       `json:"chunk_char_stats"`
	ChunkerVersion string               `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string        `json:"index_version"`
	Settings     StatsSettings `json:"settings"`
}

// DocumentChunkCount is one document's contribution to the corpus.
type DocumentChunkCount struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
	Images int    `json:"images"`
	Mode   string `json:"mode"`
}

// ChunkCharStats contains statistics about chunk sizes in characters.
type ChunkCharStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// StatsSettings echoes the configuration the corpus was built with.
type StatsSettings struct {
	ChunkMaxSize   int    `json:"chunk_max_size"`
	EmbedBatchSize int    `json:"embed_batch_size"`
	EmbedInputCap  int    `json:"embed_input_cap"`
	EmbeddingModel string `json:"embedding_model"`
	Collection     string `json:"collection"`
}

// StatsReader computes CorpusStats from the manifest and the vector store.
type StatsReader struct {
	docs       storage.DocumentStore
	chunks     storage.ChunkStore
	store      vectorstore.VectorStore
	collection string
	settings   StatsSettings
}

// NewStatsReader creates a StatsReader. store may be nil, in which case the
// vector count is reported as zero.
func NewStatsReader(docs storage.DocumentStore, chunks storage.ChunkStore, store vectorstore.VectorStore, settings StatsSettings) *StatsReader {
	return &StatsReader{docs: docs, chunks: chunks, store: store, collection: settings.Collection, settings: settings}
}

// Stats computes corpus statistics.
func (r *StatsReader) Stats(ctx context.Context) (*CorpusStats, error) {
	docs, err := r.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	stats := &CorpusStats{
		Documents:      len(docs),
		DocumentChunks: make([]DocumentChunkCount, 0, len(docs)),
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   IndexVersion(r.settings),
		Settings:       r.settings,
	}

	var sizes []int
	for _, d := range docs {
		chunks, err := r.chunks.ListByDocument(ctx, d.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to list chunks of %s: %w", d.Name, err)
		}
		stats.DocumentChunks = append(stats.DocumentChunks, DocumentChunkCount{
			Name:   d.Name,
			Chunks: len(chunks),
			Images: d.ImageCount,
			Mode:   d.Mode,
		})
		if d.Mode == ModeFallback {
			stats.FallbackDocs++
		}
		for _, c := range chunks {
			sizes = append(sizes, c.CharCount)
			if c.Oversized {
				stats.Oversized++
			}
		}
	}
	stats.Chunks = len(sizes)
	stats.ChunkChars = computeCharStats(sizes)

	if r.store != nil {
		n, err := r.store.Count(ctx, r.collection)
		if err != nil {
			return nil, fmt.Errorf("failed to count vectors: %w", err)
		}
		stats.VectorCount = n
	}
	return stats, nil
}

// IndexVersion hashes the settings that change chunk boundaries or vectors.
func IndexVersion(s StatsSettings) string {
	input := fmt.Sprintf("%s|%s|maxChunkSize=%d|inputCap=%d",
		ChunkerVersion, s.EmbeddingModel, s.ChunkMaxSize, s.EmbedInputCap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// computeCharStats computes min, max, mean, and p95 from chunk sizes.
func computeCharStats(sizes []int) ChunkCharStats {
	if len(sizes) == 0 {
		return ChunkCharStats{}
	}

	sorted := make([]int, len(sizes))
	copy(sorted, sizes)
	sort.Ints(sorted)

	sum := 0
	for _, n := range sizes {
		sum += n
	}
	mean := float64(sum) / float64(len(sizes))

	p95Index := min(int(math.Ceil(float64(len(sorted))*0.95)), len(sorted)-1)

	return ChunkCharStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
