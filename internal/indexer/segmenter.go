package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/metadata"
)

// minSectionSize is the rune count below which a fallback paragraph is merged
// into the paragraph that follows it.
const minSectionSize = 50

// Segmentation modes.
const (
	ModeStructured = "structured"
	ModeFallback   = "fallback"
)

// How page positions were found in the text.
const (
	LayoutPageMarkers = "page-markers"
	LayoutPageStats   = "page-stats"
	LayoutTitles      = "titles"
	LayoutNone        = "none"
)

// pageMarker matches the page separators the converter writes in paginated
// output, e.g. "{4}------------------------------------------------".
var pageMarker = regexp.MustCompile(`(?m)^\{(\d+)\}-{3,}[ \t]*(?:\r?\n|$)`)

// SegmentInput is one document prepared for segmentation.
type SegmentInput struct {
	Name      string
	Text      string
	Structure metadata.Structure
	PageStats []metadata.PageStat
	// LastPage is the highest page known from any source (images, statistics),
	// used to close the final section when the text carries no page markers.
	LastPage int
}

// Segmentation is the segmenter's output for one document.
type Segmentation struct {
	Spans  []Span
	Mode   string
	Layout string
}

// Segmenter splits document text into per-section spans.
type Segmenter struct {
	parser  goldmark.Markdown
	maxSize int
	logger  *slog.Logger
}

// NewSegmenter creates a Segmenter. maxSize is the maximum chunk size in runes;
// fallback paragraphs longer than that are split into sentences.
func NewSegmenter(maxSize int, logger *slog.Logger) *Segmenter {
	return &Segmenter{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
		maxSize: maxSize,
		logger:  logger,
	}
}

// Segment runs the two-branch segmentation state machine. A Structured input
// starts in the structured state and moves to fallback only if none of its
// boundaries can be placed in the text; Unavailable starts in fallback.
// Segment never fails, and returns at least one span for non-blank text.
func (s *Segmenter) Segment(ctx context.Context, in SegmentInput) Segmentation {
	logger := contextutil.LoggerOr(ctx, s.logger).With("document", in.Name)
	layout := locatePages(in.Text, in.PageStats)

	state := ModeFallback
	structured, isStructured := in.Structure.(metadata.Structured)
	if isStructured {
		state = ModeStructured
	} else if u, ok := in.Structure.(metadata.Unavailable); ok {
		logger.DebugContext(ctx, "no usable structure, using fallback segmentation", "reason", u.Reason)
	}

	for {
		switch state {
		case ModeStructured:
			spans, how, ok := s.structuredSpans(ctx, in, structured, layout)
			if ok {
				logger.DebugContext(ctx, "segmented by structure", "layout", how, "spans", len(spans))
				return Segmentation{Spans: spans, Mode: ModeStructured, Layout: how}
			}
			logger.WarnContext(ctx, "table of contents could not be placed in text, using fallback segmentation",
				"boundaries", len(structured.Boundaries))
			state = ModeFallback
		default:
			spans := s.fallbackSpans(layout)
			logger.DebugContext(ctx, "segmented by fallback", "layout", layout.source, "spans", len(spans))
			return Segmentation{Spans: spans, Mode: ModeFallback, Layout: layout.source}
		}
	}
}

// structuredSpans slices text per boundary. Boundaries are placed by page when
// the layout knows page positions, otherwise by locating their titles.
func (s *Segmenter) structuredSpans(ctx context.Context, in SegmentInput, st metadata.Structured, layout pageLayout) ([]Span, string, bool) {
	bounds := st.Boundaries
	lastPage := max(st.LastPage, in.LastPage, layout.lastPage())

	var cuts []int
	how := layout.source
	if len(layout.pages) > 0 {
		cuts = make([]int, len(bounds))
		prev := 0
		for i, b := range bounds {
			c := layout.offsetOfPage(b.StartPage)
			cuts[i] = max(c, prev)
			prev = cuts[i]
		}
	} else {
		cuts = s.locateTitles(layout.text, bounds)
		how = LayoutTitles
	}

	text := layout.text
	first := -1
	for i, c := range cuts {
		if c >= 0 && c < len(text) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, how, false
	}

	var spans []Span
	if pre := strings.TrimSpace(text[:cuts[first]]); pre != "" {
		spans = append(spans, Span{
			Title:       documentTitle(in.Name),
			Pages:       layout.rangeFor(0, cuts[first]),
			Text:        pre,
			ContentType: ContentSection,
		})
	}

	for i := first; i < len(bounds); i++ {
		if cuts[i] < 0 {
			continue
		}
		end := len(text)
		for j := i + 1; j < len(bounds); j++ {
			if cuts[j] >= 0 {
				end = cuts[j]
				break
			}
		}
		b := bounds[i]
		body := strings.TrimSpace(text[cuts[i]:end])
		if body == "" {
			if b.ZeroWidth() {
				contextutil.LoggerOr(ctx, s.logger).DebugContext(ctx, "section superseded by later entry on same page",
					"document", in.Name, "title", b.Title, "page", b.StartPage)
			}
			continue
		}
		spans = append(spans, Span{
			Title:       b.Title,
			Level:       b.Level,
			Pages:       boundaryPages(b, i == len(bounds)-1, lastPage),
			Text:        body,
			ContentType: ContentSection,
		})
	}
	return spans, how, true
}

// boundaryPages converts a boundary into the page range of its span. The last
// boundary always runs to the end of the document.
func boundaryPages(b metadata.Boundary, last bool, lastPage int) PageRange {
	if b.ZeroWidth() {
		return SinglePage(b.StartPage)
	}
	end := b.EndPage
	if last || end == metadata.EndOfDocument {
		end = max(lastPage, b.StartPage, b.EndPage)
	}
	return PageRange{Start: b.StartPage, End: end}
}

// locateTitles returns, for each boundary, the byte offset of the line that
// starts its section or -1 if the title does not occur. Titles are searched in
// boundary order, headings first and then any line containing the title.
func (s *Segmenter) locateTitles(content string, bounds []metadata.Boundary) []int {
	headings := s.collectHeadings(content)
	cuts := make([]int, len(bounds))
	cursor := 0

	// Offsets found in the lowered copy are only valid when lowering kept the
	// byte length; otherwise search case-sensitively.
	haystack := strings.ToLower(content)
	foldCase := len(haystack) == len(content)
	if !foldCase {
		haystack = content
	}

	for i, b := range bounds {
		want := b.Title
		if foldCase {
			want = strings.ToLower(want)
		}
		cuts[i] = -1

		for _, h := range headings {
			if h.lineStart < cursor {
				continue
			}
			if strings.Contains(strings.ToLower(h.text), strings.ToLower(b.Title)) {
				cuts[i] = h.lineStart
				break
			}
		}
		if cuts[i] < 0 {
			if idx := strings.Index(haystack[cursor:], want); idx >= 0 {
				cuts[i] = lineStart(content, cursor+idx)
			}
		}
		if cuts[i] >= 0 {
			cursor = lineEnd(content, cuts[i])
		}
	}
	return cuts
}

type headingPos struct {
	level     int
	text      string
	lineStart int
}

// collectHeadings walks the markdown AST and records each heading with the
// offset of the line it starts on.
func (s *Segmenter) collectHeadings(content string) []headingPos {
	src := []byte(content)
	doc := s.parser.Parser().Parse(text.NewReader(src))

	var headings []headingPos
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := heading.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		headings = append(headings, headingPos{
			level:     heading.Level,
			text:      normalizeSpace(extractTextFromNode(heading, src)),
			lineStart: lineStart(content, lines.At(0).Start),
		})
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// fallbackSpans splits text into paragraphs, merging very short ones forward
// and breaking paragraphs over the maximum size into sentence groups.
func (s *Segmenter) fallbackSpans(layout pageLayout) []Span {
	content := layout.text
	type block struct{ start, end int }

	var blocks []block
	prev := 0
	for _, off := range append(paragraphStarts(content), len(content)) {
		if strings.TrimSpace(content[prev:off]) != "" {
			blocks = append(blocks, block{prev, off})
		}
		prev = off
	}

	var merged []block
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		for runeLen(strings.TrimSpace(content[b.start:b.end])) < minSectionSize && i+1 < len(blocks) {
			next := blocks[i+1]
			if runeLen(strings.TrimSpace(content[b.start:next.end])) > s.maxSize {
				break
			}
			b.end = next.end
			i++
		}
		merged = append(merged, b)
	}

	var spans []Span
	add := func(start, end int, contentType string) {
		spans = append(spans, Span{
			Title:       fmt.Sprintf("Untitled Section %d", len(spans)+1),
			Pages:       layout.rangeFor(start, end),
			Text:        strings.TrimSpace(content[start:end]),
			ContentType: contentType,
		})
	}

	for _, b := range merged {
		body := content[b.start:b.end]
		if runeLen(strings.TrimSpace(body)) <= s.maxSize {
			add(b.start, b.end, ContentFallbackParagraph)
			continue
		}

		groupStart := b.start
		last := b.start
		for _, off := range append(sentenceStarts(body), len(body)) {
			abs := b.start + off
			if last > groupStart && runeLen(strings.TrimSpace(content[groupStart:abs])) > s.maxSize {
				add(groupStart, last, ContentFallbackSentence)
				groupStart = last
			}
			last = abs
		}
		if strings.TrimSpace(content[groupStart:b.end]) != "" {
			add(groupStart, b.end, ContentFallbackSentence)
		}
	}
	return spans
}

// pageLayout maps byte offsets of text to page numbers.
type pageLayout struct {
	text   string
	pages  []pageSlice
	source string
}

type pageSlice struct {
	page       int
	start, end int
}

// markerLayout strips converter page markers from content. A marker whose
// page number does not parse is left in the text. ok is false when no marker
// carried a usable page number.
func markerLayout(content string) (pageLayout, bool) {
	matches := pageMarker.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return pageLayout{}, false
	}
	var b strings.Builder
	b.Grow(len(content))
	layout := pageLayout{source: LayoutPageMarkers}
	prev := 0
	for _, m := range matches {
		page, err := strconv.Atoi(content[m[2]:m[3]])
		if err != nil {
			continue
		}
		b.WriteString(content[prev:m[0]])
		layout.pages = append(layout.pages, pageSlice{page: page, start: b.Len()})
		prev = m[1]
	}
	if len(layout.pages) == 0 {
		return pageLayout{}, false
	}
	b.WriteString(content[prev:])
	layout.text = b.String()
	layout.closePages()
	return layout, true
}

// locatePages finds page positions in text, preferring converter page
// markers (which are removed from the returned text) and then cumulative
// character counts from page statistics.
func locatePages(content string, stats []metadata.PageStat) pageLayout {
	if layout, ok := markerLayout(content); ok {
		return layout
	}

	counted := make([]metadata.PageStat, 0, len(stats))
	total := 0
	for _, st := range stats {
		if st.Chars > 0 {
			counted = append(counted, st)
			total += st.Chars
		}
	}
	if total == 0 {
		return pageLayout{text: content, source: LayoutNone}
	}

	slices.SortStableFunc(counted, func(a, b metadata.PageStat) int { return a.Page - b.Page })

	// Counts rarely match the markdown exactly, so offsets are scaled to the
	// text length and snapped to the next line start.
	runeOffsets := make([]int, 0, len(content))
	for i := range content {
		runeOffsets = append(runeOffsets, i)
	}
	scale := float64(len(runeOffsets)) / float64(total)

	layout := pageLayout{text: content, source: LayoutPageStats}
	cumulative := 0
	prevStart := -1
	for _, st := range counted {
		start := 0
		if cumulative > 0 {
			r := int(float64(cumulative) * scale)
			if r >= len(runeOffsets) {
				break
			}
			start = nextLineStart(content, runeOffsets[r])
		}
		if start <= prevStart {
			start = prevStart
		}
		if start >= len(content) && cumulative > 0 {
			break
		}
		layout.pages = append(layout.pages, pageSlice{page: st.Page, start: start})
		prevStart = start
		cumulative += st.Chars
	}
	layout.closePages()
	return layout
}

func (l *pageLayout) closePages() {
	for i := range l.pages {
		if i+1 < len(l.pages) {
			l.pages[i].end = l.pages[i+1].start
		} else {
			l.pages[i].end = len(l.text)
		}
	}
}

// offsetOfPage returns the start of the first page at or after p, or the end
// of the text if no such page exists.
func (l pageLayout) offsetOfPage(p int) int {
	for _, ps := range l.pages {
		if ps.page >= p {
			return ps.start
		}
	}
	return len(l.text)
}

func (l pageLayout) lastPage() int {
	last := 0
	for _, ps := range l.pages {
		last = max(last, ps.page)
	}
	return last
}

// rangeFor returns the pages overlapping the byte range [start, end).
func (l pageLayout) rangeFor(start, end int) PageRange {
	r := NoPages
	for _, ps := range l.pages {
		if ps.end <= start || ps.start >= end || ps.start == ps.end {
			continue
		}
		if !r.Known() {
			r = SinglePage(ps.page)
			continue
		}
		r.Start = min(r.Start, ps.page)
		r.End = max(r.End, ps.page)
	}
	return r
}

func lineStart(s string, off int) int {
	return strings.LastIndexByte(s[:off], '\n') + 1
}

func lineEnd(s string, off int) int {
	if idx := strings.IndexByte(s[off:], '\n'); idx >= 0 {
		return off + idx + 1
	}
	return len(s)
}

func nextLineStart(s string, off int) int {
	if off == 0 || s[off-1] == '\n' {
		return off
	}
	return lineEnd(s, off)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// documentTitle derives a readable title from a document name, used for text
// that precedes the first section.
func documentTitle(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
			if v.SoftLineBreak() {
				textBuilder.WriteByte(' ')
			}
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}
