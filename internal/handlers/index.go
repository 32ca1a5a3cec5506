package handlers

import (
	"net/http"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/indexer"
	"physiology-rag/internal/service"
)

// IndexHandler handles HTTP requests for rebuilding the corpus.
type IndexHandler struct {
	corpus service.CorpusService
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(corpus service.CorpusService) *IndexHandler {
	return &IndexHandler{corpus: corpus}
}

// IndexResponse represents the response from the rebuild endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// BuildStatusResponse describes the most recent finished rebuild.
type BuildStatusResponse struct {
	Status string                `json:"status"`
	Report *indexer.BuildReport  `json:"report,omitempty"`
	Errors []BuildFailureMessage `json:"errors,omitempty"`
}

// BuildFailureMessage is one build failure with its error text.
type BuildFailureMessage struct {
	Unit  string `json:"unit"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// ServeHTTP starts a wholesale rebuild in the background and returns immediately.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logger.InfoContext(ctx, "corpus rebuild triggered via API")
	if err := h.corpus.StartRebuild(ctx); err != nil {
		handleServiceError(ctx, w, err, "Failed to start rebuild")
		return
	}

	writeJSON(ctx, w, http.StatusAccepted, IndexResponse{
		Message: "Rebuild started. Check /api/v1/index/status or server logs for progress.",
		Status:  "accepted",
	})
}

// Status reports the most recent finished rebuild.
func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, ok := h.corpus.LastBuild()
	if !ok {
		writeJSON(ctx, w, http.StatusOK, BuildStatusResponse{Status: "none"})
		return
	}

	resp := BuildStatusResponse{Status: "completed", Report: report}
	if len(report.Failures) > 0 {
		resp.Status = "completed_with_errors"
		for _, f := range report.Failures {
			msg := ""
			if f.Err != nil {
				msg = f.Err.Error()
			}
			resp.Errors = append(resp.Errors, BuildFailureMessage{Unit: f.Unit, Stage: f.Stage, Error: msg})
		}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
