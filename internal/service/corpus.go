package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_corpus_service.go -package=mocks -mock_names=CorpusService=MockCorpusService physiology-rag/internal/service CorpusService
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_corpus_deps.go -package=mocks physiology-rag/internal/service CorpusBuilder,StatsSource

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/indexer"
	"physiology-rag/internal/storage"
)

// ErrRebuildInProgress is returned when a rebuild is requested while one is running.
var ErrRebuildInProgress = errors.New("rebuild already in progress")

// CorpusBuilder rebuilds the corpus from a processed directory.
// This interface is defined from the service layer's perspective (consumer-first).
type CorpusBuilder interface {
	Build(ctx context.Context, root string) (*indexer.BuildReport, error)
}

// StatsSource reports corpus statistics.
type StatsSource interface {
	Stats(ctx context.Context) (*indexer.CorpusStats, error)
}

// CorpusService exposes corpus maintenance and inspection.
type CorpusService interface {
	// StartRebuild starts a wholesale rebuild in the background.
	StartRebuild(ctx context.Context) error
	// LastBuild returns the report of the most recent finished rebuild.
	LastBuild() (*indexer.BuildReport, bool)
	// Stats returns corpus statistics.
	Stats(ctx context.Context) (*indexer.CorpusStats, error)
	// DocumentChunks returns the manifest chunks of one document.
	DocumentChunks(ctx context.Context, name string) ([]storage.ChunkRecord, error)
}

// Corpus implements CorpusService over the indexing pipeline and the manifest.
type Corpus struct {
	builder CorpusBuilder
	stats   StatsSource
	docs    storage.DocumentStore
	chunks  storage.ChunkStore
	root    string
	timeout time.Duration
	logger  *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup
	mu      sync.Mutex
	last    *indexer.BuildReport
}

// NewCorpusService creates a CorpusService that rebuilds from root. A
// non-positive timeout leaves background rebuilds unbounded.
func NewCorpusService(builder CorpusBuilder, stats StatsSource, docs storage.DocumentStore, chunks storage.ChunkStore, root string, timeout time.Duration) *Corpus {
	return &Corpus{
		builder: builder,
		stats:   stats,
		docs:    docs,
		chunks:  chunks,
		root:    root,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

func (s *Corpus) StartRebuild(ctx context.Context) error {
	if !s.running.TryLock() {
		return ErrRebuildInProgress
	}

	// The rebuild outlives the request that started it.
	buildCtx := context.WithoutCancel(ctx)
	logger := contextutil.LoggerOr(ctx, s.logger)
	buildCtx = contextutil.WithLogger(buildCtx, logger)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()

		if s.timeout > 0 {
			var cancel context.CancelFunc
			buildCtx, cancel = context.WithTimeout(buildCtx, s.timeout)
			defer cancel()
		}

		logger.InfoContext(buildCtx, "background rebuild started", "root", s.root)
		report, err := s.builder.Build(buildCtx, s.root)
		if err != nil {
			logger.ErrorContext(buildCtx, "background rebuild failed", "error", err)
			if report == nil {
				report = &indexer.BuildReport{}
				report.Fail(s.root, indexer.StageLoad, err)
			}
		}
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
	}()
	return nil
}

// Wait blocks until any background rebuild has finished.
func (s *Corpus) Wait() {
	s.wg.Wait()
}

func (s *Corpus) LastBuild() (*indexer.BuildReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last != nil
}

func (s *Corpus) Stats(ctx context.Context) (*indexer.CorpusStats, error) {
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		contextutil.LoggerOr(ctx, s.logger).ErrorContext(ctx, "failed to read corpus stats", "error", err)
		return nil, WrapError(err, "failed to read corpus stats")
	}
	return stats, nil
}

func (s *Corpus) DocumentChunks(ctx context.Context, name string) ([]storage.ChunkRecord, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if _, err := s.docs.GetByName(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, WrapError(ErrNotFound, "document "+name)
		}
		return nil, WrapError(err, "failed to look up document")
	}
	chunks, err := s.chunks.ListByDocument(ctx, name)
	if err != nil {
		return nil, WrapError(err, "failed to list chunks")
	}
	return chunks, nil
}
