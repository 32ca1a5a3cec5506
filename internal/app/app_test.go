package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"physiology-rag/internal/config"
	"physiology-rag/internal/lexical"
	"physiology-rag/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ProcessedDir:       filepath.Join(dir, "processed"),
		DBPath:             filepath.Join(dir, "test.db"),
		ChunkMaxSize:       1000,
		ContextBudget:      3000,
		MaxSources:         3,
		RetrievalK:         5,
		EmbedBatchSize:     10,
		EmbedInputCap:      1000,
		EmbedRPS:           5,
		RetryAttempts:      1,
		LLMTimeout:         time.Second,
		HybridSearch:       true,
		Rerank:             true,
		EmbeddingProvider:  config.ProviderOpenAI,
		GenerationProvider: config.ProviderOpenAI,
		LLMBaseURL:         "http://127.0.0.1:1",
		EmbeddingBaseURL:   "http://127.0.0.1:1",
		EmbeddingModelName: "test-embed",
		VectorBackend:      config.VectorBackendMemory,
		VectorSize:         4,
		QdrantCollection:   "physiology_test",
		CacheBackend:       config.CacheBackendMemory,
		CacheTTL:           time.Minute,
		CacheMaxEntries:    10,
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(ctx, testConfig(t), logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.Ask == nil || a.Corpus == nil || a.Pipeline == nil || a.Engine == nil {
		t.Fatal("New() left services unwired")
	}

	stats, err := a.Corpus.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 0 || stats.Chunks != 0 {
		t.Errorf("expected empty corpus, got %+v", stats)
	}
	if stats.Settings.EmbeddingModel != "test-embed" {
		t.Errorf("expected embedding model to be reported, got %q", stats.Settings.EmbeddingModel)
	}
}

func TestSeedLexical(t *testing.T) {
	ctx := context.Background()
	db, err := storage.New(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if err := storage.Migrate(db); err != nil {
		t.Fatal(err)
	}

	err = storage.NewManifest(db).ReplaceAll(ctx,
		[]storage.DocumentRecord{{Name: "renal", Hash: "h", Mode: "structured", ChunkCount: 2, BuiltAt: time.Now()}},
		[]storage.ChunkRecord{
			{ID: "renal_chunk_0", DocumentName: "renal", ChunkIndex: 0, Title: "Nephron", PageID: "1", ContentType: "section", CharCount: 40, Text: "The nephron filters plasma in the glomerulus."},
			{ID: "renal_chunk_1", DocumentName: "renal", ChunkIndex: 1, Title: "Tubule", PageID: "2", ContentType: "section", CharCount: 40, Text: "The proximal tubule reabsorbs sodium and glucose."},
		})
	if err != nil {
		t.Fatal(err)
	}

	idx := lexical.New()
	defer func() { _ = idx.Close() }()
	if err := seedLexical(ctx, storage.NewDocumentRepo(db), storage.NewChunkRepo(db), idx); err != nil {
		t.Fatalf("seedLexical() error = %v", err)
	}

	hits, err := idx.Search(ctx, "glomerulus", 5, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "renal_chunk_0" {
		t.Errorf("expected renal_chunk_0 first, got %+v", hits)
	}
}
