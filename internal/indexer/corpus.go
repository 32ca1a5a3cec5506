package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/document"
	"physiology-rag/internal/metadata"
)

// ErrEmptyDocument is returned for a document whose text is blank.
var ErrEmptyDocument = errors.New("document text is empty")

// Build stages recorded in failures.
const (
	StageLoad    = "load"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageStore   = "store"
	StageIndex   = "index"
	StageLexical = "lexical"
)

// Failure is one unit of work that did not complete during a build.
type Failure struct {
	// Unit is a document name, or a chunk id range for embedding batches.
	Unit  string `json:"unit"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Stage, f.Unit, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// BuildReport collects per-unit failures and counters for one build run.
type BuildReport struct {
	RunID          string    `json:"run_id,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	Oversized      int       `json:"oversized"`
	FallbackDocs   int       `json:"fallback_documents"`
	BatchesOK      int       `json:"batches_ok"`
	BatchesFailed  int       `json:"batches_failed"`
	ChunksEmbedded int       `json:"chunks_embedded"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Fail records a failure.
func (r *BuildReport) Fail(unit, stage string, err error) {
	r.Failures = append(r.Failures, Failure{Unit: unit, Stage: stage, Err: err})
}

// Err joins every recorded failure, or returns nil when there were none.
func (r *BuildReport) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// ManifestEntry records the chunks one document contributed to the corpus.
type ManifestEntry struct {
	Document string `json:"document"`
	Hash     string `json:"hash"`
	// First is the index of the document's first chunk in Corpus.Chunks.
	First   int    `json:"first"`
	Count   int    `json:"count"`
	FirstID string `json:"first_id"`
	LastID  string `json:"last_id"`
	Mode    string `json:"mode"`
	Layout  string `json:"layout"`
	Images  int    `json:"images"`
}

// Corpus is the flat ordered chunk collection, in document order then section order.
type Corpus struct {
	Chunks   []Chunk
	Manifest []ManifestEntry
}

// ChunksFor returns the chunks of one document.
func (c Corpus) ChunksFor(documentName string) []Chunk {
	for _, e := range c.Manifest {
		if e.Document == documentName {
			return c.Chunks[e.First : e.First+e.Count]
		}
	}
	return nil
}

// CorpusBuilder runs metadata interpretation, segmentation and packing over documents.
type CorpusBuilder struct {
	segmenter *Segmenter
	packer    *Packer
	logger    *slog.Logger
}

// NewCorpusBuilder creates a CorpusBuilder with the given maximum chunk size in runes.
func NewCorpusBuilder(maxChunkSize int, logger *slog.Logger) *CorpusBuilder {
	return &CorpusBuilder{
		segmenter: NewSegmenter(maxChunkSize, logger),
		packer:    NewPacker(maxChunkSize, logger),
		logger:    logger,
	}
}

// Build chunks every document in order. A document that fails is recorded in
// the report and does not stop the others. Cancellation is checked between
// documents.
func (b *CorpusBuilder) Build(ctx context.Context, docs []document.Document) (Corpus, *BuildReport) {
	logger := contextutil.LoggerOr(ctx, b.logger)
	report := &BuildReport{}
	var corpus Corpus

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			report.Fail(doc.Name, StageChunk, ctx.Err())
			return corpus, report
		default:
		}

		chunks, entry, err := b.BuildDocument(ctx, doc)
		if err != nil {
			logger.ErrorContext(ctx, "failed to chunk document", "document", doc.Name, "error", err)
			report.Fail(doc.Name, StageChunk, err)
			continue
		}

		entry.First = len(corpus.Chunks)
		corpus.Chunks = append(corpus.Chunks, chunks...)
		corpus.Manifest = append(corpus.Manifest, entry)

		report.Documents++
		report.Chunks += len(chunks)
		if entry.Mode == ModeFallback {
			report.FallbackDocs++
		}
		for _, c := range chunks {
			if c.Oversized {
				report.Oversized++
			}
		}
	}

	logger.InfoContext(ctx, "corpus built",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"oversized", report.Oversized,
		"failures", len(report.Failures),
	)
	return corpus, report
}

// BuildDocument chunks a single document and returns its chunks with ids
// assigned, plus its manifest entry.
func (b *CorpusBuilder) BuildDocument(ctx context.Context, doc document.Document) ([]Chunk, ManifestEntry, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ManifestEntry{}, fmt.Errorf("%s: %w", doc.Name, ErrEmptyDocument)
	}

	structure := metadata.Interpret(doc.Metadata.TOC, doc.Metadata.PageStats)
	seg := b.segmenter.Segment(ctx, SegmentInput{
		Name:      doc.Name,
		Text:      doc.Text,
		Structure: structure,
		PageStats: doc.Metadata.PageStats,
		LastPage:  lastImagePage(doc.Images),
	})

	pool := NewImagePool(doc.Images)
	var chunks []Chunk
	for _, span := range seg.Spans {
		chunks = append(chunks, b.packer.Pack(ctx, doc.Name, span, pool)...)
	}
	if len(chunks) == 0 {
		return nil, ManifestEntry{}, fmt.Errorf("%s: %w", doc.Name, ErrEmptyDocument)
	}

	images := 0
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].ID = ChunkID(doc.Name, i)
		images += len(chunks[i].Images)
	}

	if left := pool.Remaining(); len(left) > 0 {
		contextutil.LoggerOr(ctx, b.logger).DebugContext(ctx, "images not attached to any chunk",
			"document", doc.Name, "count", len(left))
	}

	return chunks, ManifestEntry{
		Document: doc.Name,
		Hash:     doc.Hash,
		Count:    len(chunks),
		FirstID:  chunks[0].ID,
		LastID:   chunks[len(chunks)-1].ID,
		Mode:     seg.Mode,
		Layout:   seg.Layout,
		Images:   images,
	}, nil
}

func lastImagePage(images []document.ImageRef) int {
	last := 0
	for _, img := range images {
		last = max(last, img.Page)
	}
	return last
}
