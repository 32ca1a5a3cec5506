package indexer

import (
	"fmt"
	"strconv"
	"strings"

	"physiology-rag/internal/document"
)

// Content types recorded on chunks.
const (
	ContentSection           = "section"
	ContentFallbackParagraph = "fallback-paragraph"
	ContentFallbackSentence  = "fallback-sentence"
)

// PageRange is an inclusive page interval. NoPages marks text whose page is unknown.
type PageRange struct {
	Start int
	End   int
}

// NoPages is the range of text that could not be placed on a page.
var NoPages = PageRange{Start: -1, End: -1}

// SinglePage returns the range covering only p.
func SinglePage(p int) PageRange {
	return PageRange{Start: p, End: p}
}

// Known reports whether the range refers to real pages.
func (r PageRange) Known() bool {
	return r.Start >= 0 && r.End >= r.Start
}

// Contains reports whether page p lies inside the range.
func (r PageRange) Contains(p int) bool {
	return r.Known() && p >= r.Start && p <= r.End
}

// String renders the page identifier: "3", "3-5", or "" when unknown.
func (r PageRange) String() string {
	switch {
	case !r.Known():
		return ""
	case r.Start == r.End:
		return strconv.Itoa(r.Start)
	default:
		return fmt.Sprintf("%d-%d", r.Start, r.End)
	}
}

// ParsePageRange parses a page identifier produced by PageRange.String.
func ParsePageRange(s string) (PageRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoPages, nil
	}
	startStr, endStr, isRange := strings.Cut(s, "-")
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return NoPages, fmt.Errorf("invalid page id %q: %w", s, err)
	}
	if !isRange {
		return SinglePage(start), nil
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return NoPages, fmt.Errorf("invalid page id %q: %w", s, err)
	}
	if end < start {
		return NoPages, fmt.Errorf("invalid page id %q: end before start", s)
	}
	return PageRange{Start: start, End: end}, nil
}

// Span is a contiguous piece of a document's text belonging to one section.
type Span struct {
	Title       string
	Level       int
	Pages       PageRange
	Text        string
	ContentType string
}

// Chunk is the atomic retrieval unit. Chunks are immutable once built.
type Chunk struct {
	ID           string              // "<document>_chunk_<index>"
	Index        int                 // Position within the document, from 0
	DocumentName string
	Title        string              // Section title, shared by sibling sub-chunks
	Pages        PageRange
	Text         string
	Images       []document.ImageRef // Figures on the chunk's pages, each owned by one chunk
	ContentType  string
	// Oversized marks a chunk that exceeds the maximum size because its text
	// contains no paragraph or sentence boundary to split at.
	Oversized bool
}

// ChunkID builds the identifier of the index-th chunk of a document.
func ChunkID(documentName string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentName, index)
}
