package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"physiology-rag/internal/app"
	"physiology-rag/internal/config"
	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers physiology questions from a corpus of converted textbook
// chapters, citing the sections and pages it used.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Physiology RAG API
//   description: |
//     Retrieval-augmented question answering over PDF-derived markdown documents.
//     Answers carry their sources with section titles, page ranges and figure references.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = contextutil.WithLogger(ctx, logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Shutdown cleanup failed", "error", err)
		}
	}()

	// Validate embedding client vector size (fail-fast)
	if err := a.CheckEmbedder(ctx); err != nil {
		log.Fatalf("%v", err)
	}
	slog.Info("Embedding client validated", "provider", cfg.EmbeddingProvider, "vector_size", cfg.VectorSize)

	router := http.NewRouter(&http.Deps{
		AskService:    a.Ask,
		CorpusService: a.Corpus,
		VectorStore:   a.VectorStore,
		Collection:    cfg.QdrantCollection,
		DB:            a.DB,
		Metrics:       a.Metrics,
	})

	// Build the corpus in the background when the index is empty
	if count, err := a.VectorStore.Count(ctx, cfg.QdrantCollection); err == nil && count == 0 {
		slog.Info("Vector index is empty, starting background corpus build", "root", cfg.ProcessedDir)
		if err := a.Corpus.StartRebuild(ctx); err != nil {
			slog.Error("Failed to start corpus build", "error", err)
		}
	}

	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", srv.Addr)
	slog.Debug("Model configuration",
		"generation_provider", cfg.GenerationProvider, "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("API server stopped")
}
