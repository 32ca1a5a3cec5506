package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"physiology-rag/internal/config"
	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/document"
	"physiology-rag/internal/lexical"
	"physiology-rag/internal/llm"
	"physiology-rag/internal/metrics"
	"physiology-rag/internal/storage"
	"physiology-rag/internal/vectorstore"
)

// ErrBuildInProgress is returned when a build is requested while another runs.
var ErrBuildInProgress = errors.New("corpus build already in progress")

// upsertBatchSize bounds the points sent to the vector store in one call.
const upsertBatchSize = 100

// PipelineDeps are the collaborators of a Pipeline. Lexical and Metrics are optional.
type PipelineDeps struct {
	Loader     *document.Loader
	Embedder   llm.Embedder
	Store      vectorstore.VectorStore
	Manifest   storage.ManifestWriter
	Lexical    *lexical.Index
	Metrics    *metrics.Metrics
	Collection string
	VectorSize int
}

// Pipeline rebuilds the whole corpus: it loads documents, chunks them, embeds
// the chunks in batches and replaces the manifest and the vector index.
type Pipeline struct {
	deps     PipelineDeps
	builder  *CorpusBuilder
	settings config.PipelineSettings
	retry    llm.RetryPolicy
	logger   *slog.Logger

	running sync.Mutex
}

// NewPipeline creates a new corpus build pipeline.
func NewPipeline(deps PipelineDeps, settings config.PipelineSettings, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Loader == nil {
		deps.Loader = document.NewLoader(logger)
	}
	if settings.EmbedBatchSize <= 0 {
		settings.EmbedBatchSize = 10
	}
	if settings.EmbedWorkers <= 0 {
		settings.EmbedWorkers = 1
	}
	if settings.EmbedInputCap <= 0 {
		settings.EmbedInputCap = llm.DefaultEmbedInputCap
	}
	return &Pipeline{
		deps:     deps,
		builder:  NewCorpusBuilder(settings.ChunkMaxSize, logger),
		settings: settings,
		retry:    llm.DefaultRetryPolicy().WithAttempts(settings.RetryAttempts),
		logger:   logger,
	}
}

func (p *Pipeline) getLogger(ctx context.Context) *slog.Logger {
	return contextutil.LoggerOr(ctx, p.logger)
}

// Build rebuilds the corpus from the processed documents under root. Failures
// of single documents or embedding batches are recorded in the report and do
// not stop the run. The returned error is reserved for conditions that stop
// the build as a whole: an unreadable root, cancellation, or a concurrent build.
func (p *Pipeline) Build(ctx context.Context, root string) (*BuildReport, error) {
	if !p.running.TryLock() {
		return nil, ErrBuildInProgress
	}
	defer p.running.Unlock()

	started := time.Now()
	runID := uuid.NewString()
	logger := p.getLogger(ctx).With("run_id", runID)
	ctx = contextutil.WithLogger(ctx, logger)

	logger.InfoContext(ctx, "starting corpus build", "root", root)

	docs, loadFailures, err := p.deps.Loader.LoadAll(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	corpus, report := p.builder.Build(ctx, docs)
	report.RunID = runID
	for _, name := range sortedKeys(loadFailures) {
		logger.ErrorContext(ctx, "failed to load document", "document", name, "error", loadFailures[name])
		report.Fail(name, StageLoad, loadFailures[name])
	}
	for _, entry := range corpus.Manifest {
		oversized := 0
		for _, c := range corpus.ChunksFor(entry.Document) {
			if c.Oversized {
				oversized++
			}
		}
		p.deps.Metrics.ObserveDocument(entry.Mode, entry.Count, oversized)
	}
	if err := ctx.Err(); err != nil {
		return p.finish(ctx, report, started), err
	}

	points, err := p.embed(ctx, corpus.Chunks, report)
	if err != nil {
		return p.finish(ctx, report, started), err
	}

	if err := p.deps.Manifest.ReplaceAll(ctx, documentRecords(corpus.Manifest), chunkRecords(corpus.Chunks)); err != nil {
		logger.ErrorContext(ctx, "failed to store manifest", "error", err)
		report.Fail("manifest", StageStore, err)
	}

	p.index(ctx, points, report)

	if p.deps.Lexical != nil {
		if err := p.deps.Lexical.Rebuild(ctx, lexicalDocs(corpus.Chunks)); err != nil {
			logger.ErrorContext(ctx, "failed to build lexical index", "error", err)
			report.Fail("lexical", StageLexical, err)
		}
	}

	return p.finish(ctx, report, started), nil
}

func (p *Pipeline) finish(ctx context.Context, report *BuildReport, started time.Time) *BuildReport {
	elapsed := time.Since(started)
	report.DurationMS = elapsed.Milliseconds()
	p.deps.Metrics.ObserveBuild(elapsed.Seconds(), report.Chunks)
	p.getLogger(ctx).InfoContext(ctx, "corpus build completed",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"chunks_embedded", report.ChunksEmbedded,
		"batches_failed", report.BatchesFailed,
		"failures", len(report.Failures),
		"duration", elapsed,
	)
	return report
}

// embedOutcome is the result of one embedding batch.
type embedOutcome struct {
	started bool
	vecs    [][]float32
	err     error
}

// embed computes vectors in batches, running up to EmbedWorkers batches at
// once. A batch is retried on transient errors and recorded as failed
// otherwise; other batches are kept either way. Cancellation is checked before
// each batch starts, never during one. Points come back in chunk order.
func (p *Pipeline) embed(ctx context.Context, chunks []Chunk, report *BuildReport) ([]vectorstore.Point, error) {
	logger := p.getLogger(ctx)
	size := p.settings.EmbedBatchSize

	policy := p.retry
	policy.OnRetry = func(attempt int, err error) {
		p.deps.Metrics.Retry("embed")
		logger.WarnContext(ctx, "retrying embedding batch", "attempt", attempt, "error", err)
	}

	var batches [][]Chunk
	for start := 0; start < len(chunks); start += size {
		batches = append(batches, chunks[start:min(start+size, len(chunks))])
	}
	outcomes := make([]embedOutcome, len(batches))

	var g errgroup.Group
	g.SetLimit(p.settings.EmbedWorkers)
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			texts := make([]string, len(batch))
			for j, c := range batch {
				texts[j] = llm.TruncateInput(c.Text, p.settings.EmbedInputCap)
			}
			out := &outcomes[i]
			out.started = true
			out.err = llm.Retry(ctx, policy, func(ctx context.Context) error {
				vecs, err := p.deps.Embedder.EmbedBatch(ctx, texts)
				if err == nil && len(vecs) != len(texts) {
					err = &llm.EmbeddingError{Op: "batch", Err: fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts))}
				}
				out.vecs = vecs
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	points := make([]vectorstore.Point, 0, len(chunks))
	skipped := 0
	for i, batch := range batches {
		out := outcomes[i]
		first, last := batch[0].ID, batch[len(batch)-1].ID
		switch {
		case !out.started:
			skipped += len(batch)
		case out.err != nil:
			logger.ErrorContext(ctx, "failed to embed batch",
				"batch", i, "first_chunk", first, "last_chunk", last, "error", out.err)
			report.BatchesFailed++
			report.Fail(first+".."+last, StageEmbed, out.err)
			p.deps.Metrics.EmbedBatch(false)
		default:
			for j, c := range batch {
				points = append(points, PointFor(c, out.vecs[j]))
			}
			report.BatchesOK++
			report.ChunksEmbedded += len(batch)
			p.deps.Metrics.EmbedBatch(true)
		}
	}

	if err := ctx.Err(); err != nil && skipped > 0 {
		logger.WarnContext(ctx, "corpus build cancelled", "embedded", report.ChunksEmbedded, "remaining", skipped)
		return points, err
	}
	return points, nil
}

// index replaces the vector collection with points.
func (p *Pipeline) index(ctx context.Context, points []vectorstore.Point, report *BuildReport) {
	logger := p.getLogger(ctx)
	collection := p.deps.Collection

	policy := p.retry
	policy.OnRetry = func(attempt int, err error) {
		p.deps.Metrics.Retry("index")
		logger.WarnContext(ctx, "retrying vector index call", "attempt", attempt, "error", err)
	}

	err := llm.Retry(ctx, policy, func(ctx context.Context) error {
		return p.deps.Store.Reset(ctx, collection, p.deps.VectorSize)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to reset collection", "collection", collection, "error", err)
		report.Fail(collection, StageIndex, err)
		return
	}

	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		batch := points[start:end]
		err := llm.Retry(ctx, policy, func(ctx context.Context) error {
			return p.deps.Store.Upsert(ctx, collection, batch)
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points",
				"batch_start", start, "batch_end", end-1, "error", err)
			report.Fail(batch[0].ID+".."+batch[len(batch)-1].ID, StageIndex, err)
		}
	}
}

// PointFor builds the vector store point of a chunk. The chunk's metadata is
// copied into the payload so search results can be attributed without a
// manifest lookup.
func PointFor(c Chunk, vec []float32) vectorstore.Point {
	return vectorstore.Point{
		ID:  c.ID,
		Vec: vec,
		Meta: map[string]any{
			vectorstore.MetaDocument:    c.DocumentName,
			vectorstore.MetaTitle:       c.Title,
			vectorstore.MetaPageID:      c.Pages.String(),
			vectorstore.MetaChunkIndex:  c.Index,
			vectorstore.MetaChunkSize:   utf8.RuneCountInString(c.Text),
			vectorstore.MetaContentType: c.ContentType,
			vectorstore.MetaImages:      strings.Join(imageNames(c.Images), ","),
			vectorstore.MetaOversized:   c.Oversized,
			vectorstore.MetaText:        c.Text,
		},
	}
}

func imageNames(images []document.ImageRef) []string {
	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.Filename
	}
	return names
}

func chunkRecords(chunks []Chunk) []storage.ChunkRecord {
	records := make([]storage.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = storage.ChunkRecord{
			ID:           c.ID,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.Index,
			Title:        c.Title,
			PageID:       c.Pages.String(),
			ContentType:  c.ContentType,
			CharCount:    utf8.RuneCountInString(c.Text),
			Oversized:    c.Oversized,
			Images:       imageNames(c.Images),
			Text:         c.Text,
		}
	}
	return records
}

func documentRecords(manifest []ManifestEntry) []storage.DocumentRecord {
	records := make([]storage.DocumentRecord, len(manifest))
	for i, e := range manifest {
		records[i] = storage.DocumentRecord{
			Name:       e.Document,
			Hash:       e.Hash,
			Mode:       e.Mode,
			Layout:     e.Layout,
			ChunkCount: e.Count,
			ImageCount: e.Images,
		}
	}
	return records
}

func lexicalDocs(chunks []Chunk) []lexical.Doc {
	docs := make([]lexical.Doc, len(chunks))
	for i, c := range chunks {
		docs[i] = lexical.Doc{ID: c.ID, Document: c.DocumentName, Title: c.Title, Text: c.Text}
	}
	return docs
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
