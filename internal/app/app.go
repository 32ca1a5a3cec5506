// Package app wires configuration into the storage, model, index and service
// layers shared by the API server and the CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"physiology-rag/internal/cache"
	"physiology-rag/internal/config"
	"physiology-rag/internal/indexer"
	"physiology-rag/internal/lexical"
	"physiology-rag/internal/llm"
	"physiology-rag/internal/metrics"
	"physiology-rag/internal/rag"
	"physiology-rag/internal/service"
	"physiology-rag/internal/storage"
	"physiology-rag/internal/vectorstore"
)

// rebuildTimeout bounds a background rebuild started through CorpusService.
const rebuildTimeout = 30 * time.Minute

// App holds the wired components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *sql.DB
	Metrics *metrics.Metrics

	Documents   *storage.DocumentRepo
	Chunks      *storage.ChunkRepo
	VectorStore vectorstore.VectorStore
	Lexical     *lexical.Index
	Embedder    llm.Embedder
	Generator   llm.Generator

	Pipeline *indexer.Pipeline
	Stats    *indexer.StatsReader
	Engine   rag.Engine
	Ask      service.AskService
	Corpus   *service.Corpus

	closers []io.Closer
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New opens the manifest database and the vector index, builds the model
// clients and assembles the pipeline, engine and services. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.DB, err = storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, a.DB)
	if err := storage.Migrate(a.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database initialized", "path", cfg.DBPath)

	a.Documents = storage.NewDocumentRepo(a.DB)
	a.Chunks = storage.NewChunkRepo(a.DB)
	manifest := storage.NewManifest(a.DB)

	if a.VectorStore, err = a.newVectorStore(); err != nil {
		return nil, err
	}
	if err := a.VectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	logger.InfoContext(ctx, "vector collection ready",
		"backend", cfg.VectorBackend, "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)

	if err := a.newModels(ctx); err != nil {
		return nil, err
	}

	a.Lexical = lexical.New()
	a.closers = append(a.closers, a.Lexical)
	if cfg.HybridSearch {
		if err := a.SeedLexical(ctx); err != nil {
			logger.WarnContext(ctx, "failed to seed lexical index from manifest", "error", err)
		}
	}

	a.Pipeline = indexer.NewPipeline(indexer.PipelineDeps{
		Embedder:   a.Embedder,
		Store:      a.VectorStore,
		Manifest:   manifest,
		Lexical:    a.Lexical,
		Metrics:    a.Metrics,
		Collection: cfg.QdrantCollection,
		VectorSize: cfg.VectorSize,
	}, cfg.Pipeline(), logger)

	a.Stats = indexer.NewStatsReader(a.Documents, a.Chunks, a.VectorStore, indexer.StatsSettings{
		ChunkMaxSize:   cfg.ChunkMaxSize,
		EmbedBatchSize: cfg.EmbedBatchSize,
		EmbedInputCap:  cfg.EmbedInputCap,
		EmbeddingModel: a.embeddingModel(),
		Collection:     cfg.QdrantCollection,
	})

	a.Engine = rag.NewEngine(rag.EngineDeps{
		Embedder:   a.Embedder,
		Generator:  a.Generator,
		Store:      a.VectorStore,
		Chunks:     a.Chunks,
		Lexical:    a.Lexical,
		Metrics:    a.Metrics,
		Collection: cfg.QdrantCollection,
	}, cfg.Retrieval(), logger)

	a.Ask = service.NewAskService(a.Engine)
	a.Corpus = service.NewCorpusService(a.Pipeline, a.Stats, a.Documents, a.Chunks, cfg.ProcessedDir, rebuildTimeout)

	return a, nil
}

func (a *App) newVectorStore() (vectorstore.VectorStore, error) {
	cfg := a.Config
	switch cfg.VectorBackend {
	case config.VectorBackendChroma:
		store, err := vectorstore.NewChromaStore(cfg.ChromaURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create chroma client: %w", err)
		}
		a.closers = append(a.closers, store)
		return store, nil
	case config.VectorBackendMemory:
		return vectorstore.NewMemoryStore(), nil
	default:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create qdrant client: %w", err)
		}
		a.closers = append(a.closers, store)
		return store, nil
	}
}

// newModels builds the embedder chain (provider, rate limit, cache) and the generator.
func (a *App) newModels(ctx context.Context) error {
	cfg := a.Config

	var gemini *llm.GeminiClient
	if cfg.EmbeddingProvider == config.ProviderGemini || cfg.GenerationProvider == config.ProviderGemini {
		var err error
		gemini, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbedModel, cfg.GeminiGenModel, cfg.VectorSize, cfg.EmbedInputCap)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
	}

	var embedder llm.Embedder
	if cfg.EmbeddingProvider == config.ProviderGemini {
		embedder = gemini
	} else {
		embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize, cfg.EmbedInputCap, cfg.LLMTimeout)
	}
	embedder = llm.NewRateLimitedEmbedder(embedder, cfg.EmbedRPS, max(1, int(cfg.EmbedRPS)))

	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		embedder = cache.NewCachedEmbedder(embedder, cache.NewMemory(cfg.CacheMaxEntries, cfg.CacheTTL), a.embeddingModel(), a.Metrics)
	case config.CacheBackendRedis:
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rc)
		embedder = cache.NewCachedEmbedder(embedder, rc, a.embeddingModel(), a.Metrics)
	}
	a.Embedder = embedder

	if cfg.GenerationProvider == config.ProviderGemini {
		a.Generator = gemini
	} else {
		a.Generator = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTimeout)
	}
	return nil
}

func (a *App) embeddingModel() string {
	if a.Config.EmbeddingProvider == config.ProviderGemini {
		return a.Config.GeminiEmbedModel
	}
	return a.Config.EmbeddingModelName
}

// CheckEmbedder embeds a probe string and fails if the vector size does not
// match VECTOR_SIZE.
func (a *App) CheckEmbedder(ctx context.Context) error {
	vec, err := a.Embedder.Embed(ctx, "test")
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vec) != a.Config.VectorSize {
		return fmt.Errorf("embedding vector size mismatch: expected %d, got %d", a.Config.VectorSize, len(vec))
	}
	return nil
}

// SeedLexical rebuilds the keyword index from the stored manifest, so hybrid
// retrieval works before the first rebuild of this process.
func (a *App) SeedLexical(ctx context.Context) error {
	return seedLexical(ctx, a.Documents, a.Chunks, a.Lexical)
}

func seedLexical(ctx context.Context, docs storage.DocumentStore, chunks storage.ChunkStore, idx *lexical.Index) error {
	records, err := docs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	var lexDocs []lexical.Doc
	for _, d := range records {
		cs, err := chunks.ListByDocument(ctx, d.Name)
		if err != nil {
			return fmt.Errorf("failed to list chunks of %s: %w", d.Name, err)
		}
		for _, c := range cs {
			lexDocs = append(lexDocs, lexical.Doc{ID: c.ID, Document: c.DocumentName, Title: c.Title, Text: c.Text})
		}
	}
	if len(lexDocs) == 0 {
		return nil
	}
	return idx.Rebuild(ctx, lexDocs)
}

// Close waits for background rebuilds and releases every opened resource.
func (a *App) Close() error {
	if a.Corpus != nil {
		a.Corpus.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
