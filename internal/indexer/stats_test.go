package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"physiology-rag/internal/storage"
	vectorstore_mocks "physiology-rag/internal/vectorstore/mocks"
)

func TestStatsReader_Stats(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctrl := gomock.NewController(t)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Count(gomock.Any(), "physiology").Return(0, nil)
	store.EXPECT().Count(gomock.Any(), "physiology").Return(4, nil)

	settings := StatsSettings{ChunkMaxSize: 1000, EmbedBatchSize: 10, EmbedInputCap: 1000, EmbeddingModel: "test-embedding-model", Collection: "physiology"}
	reader := NewStatsReader(storage.NewDocumentRepo(db), storage.NewChunkRepo(db), store, settings)
	ctx := context.Background()

	// Empty corpus
	stats, err := reader.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 0 || stats.Chunks != 0 || stats.ChunkChars != (ChunkCharStats{}) {
		t.Errorf("empty Stats() = %+v", stats)
	}
	if stats.ChunkerVersion != ChunkerVersion {
		t.Errorf("ChunkerVersion = %s, want %s", stats.ChunkerVersion, ChunkerVersion)
	}
	if stats.IndexVersion == "" {
		t.Error("IndexVersion should not be empty")
	}

	docs := []storage.DocumentRecord{
		{Name: "cardio", Hash: "h1", Mode: ModeStructured, Layout: LayoutPageMarkers, ChunkCount: 3, ImageCount: 2},
		{Name: "renal", Hash: "h2", Mode: ModeFallback, Layout: LayoutNone, ChunkCount: 1},
	}
	chunks := []storage.ChunkRecord{
		{ID: "cardio_chunk_0", DocumentName: "cardio", ChunkIndex: 0, ContentType: ContentSection, CharCount: 100, Text: "a"},
		{ID: "cardio_chunk_1", DocumentName: "cardio", ChunkIndex: 1, ContentType: ContentSection, CharCount: 400, Text: "b"},
		{ID: "cardio_chunk_2", DocumentName: "cardio", ChunkIndex: 2, ContentType: ContentSection, CharCount: 1500, Oversized: true, Text: "c"},
		{ID: "renal_chunk_0", DocumentName: "renal", ChunkIndex: 0, ContentType: ContentFallbackParagraph, CharCount: 200, Text: "d"},
	}
	if err := storage.NewManifest(db).ReplaceAll(ctx, docs, chunks); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	stats, err = reader.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 2 || stats.Chunks != 4 || stats.VectorCount != 4 {
		t.Errorf("Documents = %d, Chunks = %d, VectorCount = %d", stats.Documents, stats.Chunks, stats.VectorCount)
	}
	if stats.Oversized != 1 || stats.FallbackDocs != 1 {
		t.Errorf("Oversized = %d, FallbackDocs = %d", stats.Oversized, stats.FallbackDocs)
	}
	wantDocs := []DocumentChunkCount{
		{Name: "cardio", Chunks: 3, Images: 2, Mode: ModeStructured},
		{Name: "renal", Chunks: 1, Mode: ModeFallback},
	}
	for i, want := range wantDocs {
		if stats.DocumentChunks[i] != want {
			t.Errorf("DocumentChunks[%d] = %+v, want %+v", i, stats.DocumentChunks[i], want)
		}
	}
	wantChars := ChunkCharStats{Min: 100, Max: 1500, Mean: 550, P95: 1500}
	if stats.ChunkChars != wantChars {
		t.Errorf("ChunkChars = %+v, want %+v", stats.ChunkChars, wantChars)
	}
}

func TestStatsReader_VectorStoreError(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if err := storage.Migrate(db); err != nil {
		t.Fatal(err)
	}

	ctrl := gomock.NewController(t)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New("unavailable"))

	reader := NewStatsReader(storage.NewDocumentRepo(db), storage.NewChunkRepo(db), store, StatsSettings{})
	if _, err := reader.Stats(context.Background()); err == nil {
		t.Error("Stats() should fail when the vector store fails")
	}
}

func TestIndexVersion(t *testing.T) {
	base := StatsSettings{ChunkMaxSize: 1000, EmbedInputCap: 1000, EmbeddingModel: "m"}
	changed := base
	changed.ChunkMaxSize = 800
	batch := base
	batch.EmbedBatchSize = 50

	if IndexVersion(base) == IndexVersion(changed) {
		t.Error("IndexVersion should change with the chunk size")
	}
	if IndexVersion(base) != IndexVersion(batch) {
		t.Error("IndexVersion should not depend on the batch size")
	}
	if len(IndexVersion(base)) != 16 {
		t.Errorf("IndexVersion length = %d, want 16", len(IndexVersion(base)))
	}
}

func TestComputeCharStats(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
		want  ChunkCharStats
	}{
		{
			name:  "empty",
			sizes: []int{},
			want:  ChunkCharStats{},
		},
		{
			name:  "single value",
			sizes: []int{10},
			want:  ChunkCharStats{Min: 10, Max: 10, Mean: 10.0, P95: 10},
		},
		{
			name:  "unsorted values",
			sizes: []int{30, 5, 20, 10, 15},
			want:  ChunkCharStats{Min: 5, Max: 30, Mean: 16.0, P95: 30},
		},
		{
			name:  "many values for p95",
			sizes: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want:  ChunkCharStats{Min: 1, Max: 20, Mean: 10.5, P95: 20},
		},
		{
			name:  "mean rounded to two decimals",
			sizes: []int{1, 1, 2},
			want:  ChunkCharStats{Min: 1, Max: 2, Mean: 1.33, P95: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeCharStats(tt.sizes); got != tt.want {
				t.Errorf("computeCharStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
