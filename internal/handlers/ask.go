package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/rag"
	"physiology-rag/internal/service"
)

// AskHandler handles HTTP requests for questions against the corpus.
type AskHandler struct {
	askService service.AskService
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(askService service.AskService) *AskHandler {
	return &AskHandler{askService: askService}
}

// AskRequest represents the HTTP request payload for questions.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
	Document string `json:"document,omitempty"`
}

// AskResponse represents the HTTP response payload for questions.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated answer, or the reason there is none
	Answer string `json:"answer"`

	// Chunks the answer was generated from, best first
	Sources []SourceResponse `json:"sources"`

	// False when nothing relevant was found in the corpus
	FoundSources bool `json:"found_sources"`

	// Retrieval or generation failure, if any
	Error string `json:"error,omitempty"`

	// Debug contains debug information when debug mode is enabled (via ?debug=true query parameter).
	Debug *rag.DebugInfo `json:"debug,omitempty"`
}

// SourceResponse attributes part of an answer to a chunk.
//
// swagger:model SourceResponse
type SourceResponse struct {
	ChunkID  string   `json:"chunk_id"`
	Document string   `json:"document"`
	Section  string   `json:"section"`
	PageID   string   `json:"page_id,omitempty"`
	Score    float32  `json:"score"`
	Images   []string `json:"images,omitempty"`
	Preview  string   `json:"preview"`
}

// ServeHTTP handles HTTP requests for questions.
//
// swagger:route POST /api/v1/ask askQuestion
//
// # Ask a question
//
// Retrieves the most relevant chunks and generates an answer that credits them.
// Retrieval and generation failures still return 200 with the error described
// in the body; only malformed requests are rejected.
//
// responses:
//
//	'200':
//	  description: Structured answer
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Bad request (invalid question or k)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Parse debug query parameter
	debug := false
	if debugParam := r.URL.Query().Get("debug"); debugParam != "" {
		debug = strings.ToLower(debugParam) == "true" || debugParam == "1"
	}

	svcResp, err := h.askService.Ask(ctx, service.AskRequest{
		Question: req.Question,
		K:        req.K,
		Document: req.Document,
		Debug:    debug,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process question")
		return
	}

	sources := make([]SourceResponse, len(svcResp.Sources))
	for i, s := range svcResp.Sources {
		sources[i] = SourceResponse{
			ChunkID:  s.ChunkID,
			Document: s.Document,
			Section:  s.Section,
			PageID:   s.PageID,
			Score:    s.Score,
			Images:   s.Images,
			Preview:  s.Preview,
		}
	}

	writeJSON(ctx, w, http.StatusOK, AskResponse{
		Answer:       svcResp.Answer,
		Sources:      sources,
		FoundSources: svcResp.FoundSources,
		Error:        svcResp.Error,
		Debug:        svcResp.Debug,
	})
}
