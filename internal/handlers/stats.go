package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"physiology-rag/internal/service"
	"physiology-rag/internal/storage"
)

// CorpusHandler serves corpus statistics and manifest contents.
type CorpusHandler struct {
	corpus service.CorpusService
}

// NewCorpusHandler creates a new CorpusHandler.
func NewCorpusHandler(corpus service.CorpusService) *CorpusHandler {
	return &CorpusHandler{corpus: corpus}
}

// ChunkResponse is one manifest chunk.
type ChunkResponse struct {
	ID          string   `json:"id"`
	ChunkIndex  int      `json:"chunk_index"`
	Title       string   `json:"section_title"`
	PageID      string   `json:"page_id,omitempty"`
	ContentType string   `json:"content_type"`
	CharCount   int      `json:"char_count"`
	Oversized   bool     `json:"oversized,omitempty"`
	Images      []string `json:"images,omitempty"`
	Text        string   `json:"text"`
}

// DocumentChunksResponse lists a document's chunks in order.
type DocumentChunksResponse struct {
	Document string          `json:"document"`
	Chunks   []ChunkResponse `json:"chunks"`
}

// Stats handles GET /api/v1/stats.
func (h *CorpusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.corpus.Stats(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to read corpus stats")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}

// DocumentChunks handles GET /api/v1/documents/{name}/chunks.
func (h *CorpusHandler) DocumentChunks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	records, err := h.corpus.DocumentChunks(ctx, name)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list document chunks")
		return
	}
	writeJSON(ctx, w, http.StatusOK, DocumentChunksResponse{Document: name, Chunks: chunkResponses(records)})
}

func chunkResponses(records []storage.ChunkRecord) []ChunkResponse {
	out := make([]ChunkResponse, len(records))
	for i, rec := range records {
		out[i] = ChunkResponse{
			ID:          rec.ID,
			ChunkIndex:  rec.ChunkIndex,
			Title:       rec.Title,
			PageID:      rec.PageID,
			ContentType: rec.ContentType,
			CharCount:   rec.CharCount,
			Oversized:   rec.Oversized,
			Images:      rec.Images,
			Text:        rec.Text,
		}
	}
	return out
}
