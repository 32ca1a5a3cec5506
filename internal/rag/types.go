package rag

// Query represents a question against the corpus.
type Query struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K optionally overrides how many chunks are retrieved. Zero uses the configured default.
	K int `json:"k,omitempty"`
	// Document restricts retrieval to a single document when set.
	Document string `json:"document,omitempty"`
	// Debug enables debug mode, returning detailed retrieval information.
	Debug bool `json:"debug,omitempty"`
}

// Source credits one chunk that was placed in the generation context.
type Source struct {
	// ChunkID is the stable chunk identifier (<doc>_chunk_<n>).
	ChunkID string `json:"chunk_id"`
	// Document is the document name.
	Document string `json:"document"`
	// Section is the section title the chunk belongs to.
	Section string `json:"section"`
	// PageID is a single page ("3") or a range ("3-5"); empty when unknown.
	PageID string `json:"page_id,omitempty"`
	// Score is the ranking score the chunk was selected with.
	Score float32 `json:"score"`
	// Images are the figure filenames attached to the chunk.
	Images []string `json:"images,omitempty"`
	// Preview is a short excerpt of the chunk's first paragraph.
	Preview string `json:"preview"`
}

// AssembledContext is the text handed to generation plus the sources it was
// built from. Empty input yields empty Text and no Sources.
type AssembledContext struct {
	Text    string
	Sources []Source
}

// Empty reports whether nothing was assembled.
func (a AssembledContext) Empty() bool {
	return len(a.Sources) == 0
}

// Answer is the structured result of a question. It is always returned,
// including on failure; Error carries the failure description.
type Answer struct {
	// Answer is the generated answer, or an explanation of why there is none.
	Answer string `json:"answer"`
	// Sources are the chunks the answer was generated from.
	Sources []Source `json:"sources"`
	// FoundSources is false when retrieval produced nothing usable.
	FoundSources bool `json:"found_sources"`
	// Error describes a retrieval or generation failure.
	Error string `json:"error,omitempty"`
	// Debug contains debug information when debug mode is enabled.
	Debug *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo contains detailed retrieval information for debugging and evaluation.
type DebugInfo struct {
	// RetrievedChunks contains all retrieved chunks with scores and ranks.
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	// Latency is the per-stage timing of the query.
	Latency *LatencyBreakdown `json:"latency,omitempty"`
}

// RetrievedChunk represents a retrieved chunk with scoring information.
type RetrievedChunk struct {
	// ChunkID is the stable chunk identifier.
	ChunkID string `json:"chunk_id"`
	// Document is the document name.
	Document string `json:"document"`
	// Section is the section title.
	Section string `json:"section"`
	// ScoreVector is the vector similarity score.
	ScoreVector float64 `json:"score_vector"`
	// ScoreLexical is the lexical score (if applicable).
	ScoreLexical float64 `json:"score_lexical,omitempty"`
	// ScoreFinal is the combined final score.
	ScoreFinal float64 `json:"score_final"`
	// Selected is true when the chunk made it into the context.
	Selected bool `json:"selected"`
	// Text is the chunk text (full or truncated).
	Text string `json:"text"`
	// Rank is the rank of this chunk in the retrieval results (1-based).
	Rank int `json:"rank"`
}

// LatencyBreakdown records how long each query stage took.
type LatencyBreakdown struct {
	RetrievalMs  int64 `json:"retrieval_ms"`
	GenerationMs int64 `json:"generation_ms"`
	TotalMs      int64 `json:"total_ms"`
}
