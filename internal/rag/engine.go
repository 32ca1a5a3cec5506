package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"physiology-rag/internal/config"
	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/lexical"
	"physiology-rag/internal/llm"
	"physiology-rag/internal/metrics"
	"physiology-rag/internal/storage"
	"physiology-rag/internal/vectorstore"
)

const (
	// DefaultK is the number of chunks retrieved when neither the query nor
	// the configuration sets one.
	DefaultK = 5
	minK     = 1
	maxK     = 20

	maxDebugChunks   = 50
	debugTextPreview = 300
)

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question from the corpus. It always returns a structured
	// answer; failures are described in Answer.Error.
	Ask(ctx context.Context, q Query) Answer
}

// EngineDeps are the capabilities the engine retrieves and generates with.
// Chunks, Lexical and Metrics are optional.
type EngineDeps struct {
	Embedder   llm.Embedder
	Generator  llm.Generator
	Store      vectorstore.VectorStore
	Chunks     storage.ChunkStore
	Lexical    *lexical.Index
	Metrics    *metrics.Metrics
	Collection string
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	deps      EngineDeps
	settings  config.RetrievalSettings
	assembler *Assembler
	composer  *Composer
	retry     llm.RetryPolicy
	logger    *slog.Logger
}

// rerankCandidate is a retrieved chunk with the scores used to order it.
type rerankCandidate struct {
	result       vectorstore.SearchResult
	vectorScore  float32
	lexicalScore float32
	finalScore   float32
	originalRank int
}

// NewEngine creates a new RAG engine.
func NewEngine(deps EngineDeps, settings config.RetrievalSettings, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.K <= 0 {
		settings.K = DefaultK
	}
	retry := llm.DefaultRetryPolicy()
	if settings.RetryAttempts > 0 {
		retry = retry.WithAttempts(settings.RetryAttempts)
	}
	m := deps.Metrics
	retry.OnRetry = func(attempt int, err error) {
		m.Retry("query")
		logger.Warn("retrying query call", "attempt", attempt, "error", err)
	}

	return &ragEngine{
		deps:      deps,
		settings:  settings,
		assembler: NewAssembler(settings.MaxSources, settings.ContextBudget),
		composer:  NewComposer(deps.Generator, retry, logger),
		retry:     retry,
		logger:    logger,
	}
}

// getLogger extracts logger from context or returns the engine logger.
func (e *ragEngine) getLogger(ctx context.Context) *slog.Logger {
	return contextutil.LoggerOr(ctx, e.logger)
}

// Ask answers a question using RAG.
func (e *ragEngine) Ask(ctx context.Context, q Query) Answer {
	logger := e.getLogger(ctx)
	start := time.Now()

	k := clampK(q.K, e.settings.K)
	logger.InfoContext(ctx, "RAG query started",
		"question", q.Question,
		"document", q.Document,
		"k", k,
		"hybrid", e.settings.Hybrid,
		"rerank", e.settings.Rerank,
	)

	candidates, err := e.retrieve(ctx, q, k)
	retrievalMs := time.Since(start).Milliseconds()
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		e.deps.Metrics.ObserveQuery(metrics.QueryFailed, time.Since(start).Seconds())
		return Answer{
			Answer:  fmt.Sprintf("Error retrieving relevant information: %v", err),
			Sources: []Source{},
			Error:   err.Error(),
		}
	}

	ranked := make([]vectorstore.SearchResult, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.result
		ranked[i].Score = c.finalScore
	}
	actx := e.assembler.Assemble(ranked)
	e.deps.Metrics.ObserveAssembly(len([]rune(actx.Text)))
	logger.InfoContext(ctx, "context assembled",
		"candidates", len(candidates),
		"sources", len(actx.Sources),
		"context_length", len(actx.Text),
	)
	logger.DebugContext(ctx, "full context being sent to LLM", "context", actx.Text)

	genStart := time.Now()
	answer := e.composer.Compose(ctx, q.Question, actx)
	generationMs := time.Since(genStart).Milliseconds()

	outcome := metrics.QueryFound
	switch {
	case answer.Error != "":
		outcome = metrics.QueryFailed
	case !answer.FoundSources:
		outcome = metrics.QueryEmpty
	}
	e.deps.Metrics.ObserveQuery(outcome, time.Since(start).Seconds())

	if q.Debug {
		answer.Debug = e.buildDebugInfo(candidates, actx.Sources, maxDebugChunks, retrievalMs, generationMs, time.Since(start).Milliseconds())
	}

	logger.InfoContext(ctx, "RAG query completed",
		"question_length", len(q.Question),
		"sources_used", len(answer.Sources),
		"found_sources", answer.FoundSources,
		"answer_length", len(answer.Answer),
	)
	return answer
}

// retrieve embeds the question, searches the vector index and returns the
// deduplicated candidates best first. An empty index yields no candidates.
func (e *ragEngine) retrieve(ctx context.Context, q Query, k int) ([]rerankCandidate, error) {
	logger := e.getLogger(ctx)

	var queryVector []float32
	err := llm.Retry(ctx, e.retry, func(ctx context.Context) error {
		var embedErr error
		queryVector, embedErr = e.deps.Embedder.Embed(ctx, llm.TruncateInput(q.Question, llm.DefaultEmbedInputCap))
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	var filters map[string]string
	if q.Document != "" {
		filters = map[string]string{vectorstore.MetaDocument: q.Document}
	}

	var results []vectorstore.SearchResult
	err = llm.Retry(ctx, e.retry, func(ctx context.Context) error {
		var searchErr error
		results, searchErr = e.deps.Store.Search(ctx, e.deps.Collection, queryVector, k, filters)
		return searchErr
	})
	if errors.Is(err, vectorstore.ErrEmptyIndex) {
		logger.WarnContext(ctx, "vector index is empty")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	results = dedupe(results)
	logger.InfoContext(ctx, "vector search completed", "results_count", len(results), "k_requested", k)
	if len(results) > 0 {
		topScores := make([]float32, 0, 3)
		for i := 0; i < len(results) && i < 3; i++ {
			topScores = append(topScores, results[i].Score)
		}
		logger.DebugContext(ctx, "top search results", "top_3_scores", topScores)
	}

	candidates := make([]rerankCandidate, len(results))
	for i, r := range results {
		candidates[i] = rerankCandidate{
			result:       r,
			vectorScore:  r.Score,
			finalScore:   r.Score,
			originalRank: i + 1,
		}
	}

	if e.settings.Rerank {
		candidates = rerank(q.Question, candidates)
	}
	if e.settings.Hybrid && e.deps.Lexical != nil {
		candidates = e.fuseLexical(ctx, q, k, candidates)
	}
	return candidates, nil
}

// fuseLexical merges keyword hits into the vector candidates with
// Reciprocal Rank Fusion. Keyword-only hits are resolved through the chunk
// store; without one they are dropped. Lexical failures leave the vector
// ranking untouched.
func (e *ragEngine) fuseLexical(ctx context.Context, q Query, k int, candidates []rerankCandidate) []rerankCandidate {
	logger := e.getLogger(ctx)

	hits, err := e.deps.Lexical.Search(ctx, q.Question, k, q.Document)
	if err != nil {
		logger.WarnContext(ctx, "lexical search failed, using vector ranking", "error", err)
		return candidates
	}

	byID := make(map[string]rerankCandidate, len(candidates)+len(hits))
	vectorIDs := make([]string, len(candidates))
	for i, c := range candidates {
		byID[c.result.ID] = c
		vectorIDs[i] = c.result.ID
	}

	fused := lexical.Fuse(k, vectorIDs, lexical.IDs(hits))
	out := make([]rerankCandidate, 0, len(fused))
	for _, f := range fused {
		c, ok := byID[f.ID]
		if !ok {
			if e.deps.Chunks == nil {
				continue
			}
			rec, err := e.deps.Chunks.GetByID(ctx, f.ID)
			if err != nil {
				logger.WarnContext(ctx, "failed to fetch lexical hit", "chunk_id", f.ID, "error", err)
				continue
			}
			c = rerankCandidate{result: resultFromRecord(*rec)}
		}
		c.finalScore = float32(f.Score)
		out = append(out, c)
	}

	logger.DebugContext(ctx, "hybrid fusion completed", "vector", len(candidates), "lexical", len(hits), "fused", len(out))
	return out
}

// buildDebugInfo reports every candidate with its scores, marking the ones
// that were placed in the context.
func (e *ragEngine) buildDebugInfo(candidates []rerankCandidate, selected []Source, limit int, retrievalMs, generationMs, totalMs int64) *DebugInfo {
	inContext := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		inContext[s.ChunkID] = struct{}{}
	}

	chunks := make([]RetrievedChunk, 0, min(len(candidates), limit))
	for i, c := range candidates {
		if i >= limit {
			break
		}
		text := vectorstore.MetaString(c.result.Meta, vectorstore.MetaText)
		if runes := []rune(text); len(runes) > debugTextPreview {
			text = string(runes[:debugTextPreview]) + "..."
		}
		_, ok := inContext[c.result.ID]
		chunks = append(chunks, RetrievedChunk{
			ChunkID:      c.result.ID,
			Document:     vectorstore.MetaString(c.result.Meta, vectorstore.MetaDocument),
			Section:      vectorstore.MetaString(c.result.Meta, vectorstore.MetaTitle),
			ScoreVector:  float64(c.vectorScore),
			ScoreLexical: float64(c.lexicalScore),
			ScoreFinal:   float64(c.finalScore),
			Selected:     ok,
			Text:         text,
			Rank:         i + 1,
		})
	}

	return &DebugInfo{
		RetrievedChunks: chunks,
		Latency: &LatencyBreakdown{
			RetrievalMs:  retrievalMs,
			GenerationMs: generationMs,
			TotalMs:      totalMs,
		},
	}
}

// clampK resolves the requested chunk count: zero falls back to def, and
// explicit values are kept within [minK, maxK].
func clampK(requested, def int) int {
	k := requested
	if k == 0 {
		k = def
	}
	if k < minK {
		k = minK
	}
	if k > maxK {
		k = maxK
	}
	return k
}

// dedupe keeps the first occurrence of each chunk id.
func dedupe(results []vectorstore.SearchResult) []vectorstore.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]vectorstore.SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func resultFromRecord(rec storage.ChunkRecord) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		ID: rec.ID,
		Meta: map[string]any{
			vectorstore.MetaChunkID:     rec.ID,
			vectorstore.MetaDocument:    rec.DocumentName,
			vectorstore.MetaTitle:       rec.Title,
			vectorstore.MetaPageID:      rec.PageID,
			vectorstore.MetaChunkIndex:  rec.ChunkIndex,
			vectorstore.MetaChunkSize:   rec.CharCount,
			vectorstore.MetaContentType: rec.ContentType,
			vectorstore.MetaImages:      strings.Join(rec.Images, ","),
			vectorstore.MetaOversized:   rec.Oversized,
			vectorstore.MetaText:        rec.Text,
		},
	}
}
