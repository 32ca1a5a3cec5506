package rag

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"physiology-rag/internal/vectorstore"
)

const (
	// DefaultMaxSources is the number of chunks placed in one context.
	DefaultMaxSources = 3
	// DefaultContextBudget is the maximum number of characters in one context.
	DefaultContextBudget = 3000

	sourceSeparator = "\n---\n"
	previewLimit    = 200
)

// Assembler packs ranked chunks into a bounded generation context.
type Assembler struct {
	maxSources int
	budget     int
}

// NewAssembler creates an Assembler. Non-positive values use the defaults.
func NewAssembler(maxSources, budget int) *Assembler {
	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &Assembler{maxSources: maxSources, budget: budget}
}

// Assemble walks results best first and appends each one while it fits the
// character budget and the source limit. Repeated chunk ids are skipped. The
// first result that does not fit ends assembly; later, smaller results are
// never pulled forward, so source scores stay non-increasing.
func (a *Assembler) Assemble(results []vectorstore.SearchResult) AssembledContext {
	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(x, y vectorstore.SearchResult) int {
		switch {
		case x.Score > y.Score:
			return -1
		case x.Score < y.Score:
			return 1
		default:
			return 0
		}
	})

	var b strings.Builder
	used := 0
	sources := make([]Source, 0, min(len(ranked), a.maxSources))
	seen := make(map[string]struct{}, len(ranked))

	for _, r := range ranked {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		if len(sources) >= a.maxSources {
			break
		}

		src := sourceFor(r)
		block := formatBlock(len(sources)+1, src, vectorstore.MetaString(r.Meta, vectorstore.MetaText))
		cost := utf8.RuneCountInString(block)
		if len(sources) > 0 {
			cost += utf8.RuneCountInString(sourceSeparator)
		}
		if used+cost > a.budget {
			break
		}

		if len(sources) > 0 {
			b.WriteString(sourceSeparator)
		}
		b.WriteString(block)
		used += cost
		seen[r.ID] = struct{}{}
		sources = append(sources, src)
	}

	return AssembledContext{Text: b.String(), Sources: sources}
}

// formatBlock renders one context entry: a header line naming the document,
// section, page and relevance, then the chunk text.
func formatBlock(n int, src Source, text string) string {
	page := src.PageID
	if page == "" {
		page = "Unknown"
	}
	title := src.Section
	if title == "" {
		title = "Content"
	}
	return fmt.Sprintf("Source %d: %s - %s (Page %s) [Relevance: %.3f]\n%s", n, src.Document, title, page, src.Score, text)
}

func sourceFor(r vectorstore.SearchResult) Source {
	var images []string
	if raw := vectorstore.MetaString(r.Meta, vectorstore.MetaImages); raw != "" {
		images = strings.Split(raw, ",")
	}
	return Source{
		ChunkID:  r.ID,
		Document: vectorstore.MetaString(r.Meta, vectorstore.MetaDocument),
		Section:  vectorstore.MetaString(r.Meta, vectorstore.MetaTitle),
		PageID:   vectorstore.MetaString(r.Meta, vectorstore.MetaPageID),
		Score:    r.Score,
		Images:   images,
		Preview:  paragraphPreview(vectorstore.MetaString(r.Meta, vectorstore.MetaText)),
	}
}

// paragraphPreview returns the first non-blank paragraph of text, cut to
// previewLimit runes with a trailing ellipsis.
func paragraphPreview(text string) string {
	for para := range strings.SplitSeq(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= previewLimit {
			return para
		}
		runes := []rune(para)
		return strings.TrimSpace(string(runes[:previewLimit])) + "..."
	}
	return ""
}
