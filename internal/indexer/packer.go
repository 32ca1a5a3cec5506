package indexer

import (
	"context"
	"log/slog"
	"strings"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/document"
)

// ImagePool hands out a document's images to chunks. Each image is given to
// the first chunk whose pages contain it and never again.
type ImagePool struct {
	images []document.ImageRef
	taken  []bool
}

// NewImagePool creates a pool over images, which should be sorted by page.
func NewImagePool(images []document.ImageRef) *ImagePool {
	return &ImagePool{images: images, taken: make([]bool, len(images))}
}

// Take removes and returns the images whose page lies within pages.
func (p *ImagePool) Take(pages PageRange) []document.ImageRef {
	if p == nil || !pages.Known() {
		return nil
	}
	var out []document.ImageRef
	for i, img := range p.images {
		if p.taken[i] || !img.HasPage() || !pages.Contains(img.Page) {
			continue
		}
		p.taken[i] = true
		out = append(out, img)
	}
	return out
}

// Remaining returns the images no chunk has claimed.
func (p *ImagePool) Remaining() []document.ImageRef {
	var out []document.ImageRef
	for i, img := range p.images {
		if !p.taken[i] {
			out = append(out, img)
		}
	}
	return out
}

// Packer turns section spans into size-bounded chunks.
type Packer struct {
	maxSize int
	logger  *slog.Logger
}

// NewPacker creates a Packer emitting chunks of at most maxSize runes.
func NewPacker(maxSize int, logger *slog.Logger) *Packer {
	return &Packer{maxSize: maxSize, logger: logger}
}

// Pack splits one span into chunks. Chunks carry the span's title, pages and
// content type; IDs and indexes are assigned by the caller.
//
// A span over the maximum is cut at the last paragraph break that keeps the
// piece within the maximum, else at the last sentence break. Text with neither
// break within the maximum is emitted whole up to its next break and marked
// Oversized rather than cut mid-word.
func (p *Packer) Pack(ctx context.Context, documentName string, span Span, images *ImagePool) []Chunk {
	var chunks []Chunk
	emit := func(text string, oversized bool) {
		chunks = append(chunks, Chunk{
			DocumentName: documentName,
			Title:        span.Title,
			Pages:        span.Pages,
			Text:         text,
			Images:       images.Take(span.Pages),
			ContentType:  span.ContentType,
			Oversized:    oversized,
		})
	}

	body := strings.TrimSpace(span.Text)
	if body == "" {
		return nil
	}
	if runeLen(body) <= p.maxSize {
		emit(body, false)
		return chunks
	}

	paragraphs := paragraphStarts(body)
	sentences := sentenceStarts(body)

	start := 0
	for start < len(body) {
		rest := strings.TrimSpace(body[start:])
		if rest == "" {
			break
		}
		if runeLen(rest) <= p.maxSize {
			emit(rest, false)
			break
		}

		cut := p.lastFitting(body, start, paragraphs)
		if cut < 0 {
			cut = p.lastFitting(body, start, sentences)
		}
		if cut < 0 {
			cut = nextBreak(start, paragraphs, sentences, len(body))
			piece := strings.TrimSpace(body[start:cut])
			contextutil.LoggerOr(ctx, p.logger).WarnContext(ctx, "chunk exceeds maximum size with no split point",
				"document", documentName,
				"title", span.Title,
				"chars", runeLen(piece),
				"max", p.maxSize,
			)
			emit(piece, true)
			start = cut
			continue
		}

		if piece := strings.TrimSpace(body[start:cut]); piece != "" {
			emit(piece, false)
		}
		start = cut
	}
	return chunks
}

// lastFitting returns the largest break offset after start whose preceding
// piece fits within the maximum, or -1.
func (p *Packer) lastFitting(body string, start int, breaks []int) int {
	best := -1
	for _, b := range breaks {
		if b <= start {
			continue
		}
		if runeLen(strings.TrimSpace(body[start:b])) > p.maxSize {
			break
		}
		best = b
	}
	return best
}

// nextBreak returns the first paragraph or sentence break after start, or end.
func nextBreak(start int, paragraphs, sentences []int, end int) int {
	next := end
	for _, breaks := range [][]int{paragraphs, sentences} {
		for _, b := range breaks {
			if b > start {
				next = min(next, b)
				break
			}
		}
	}
	return next
}
