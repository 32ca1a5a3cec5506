package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/vectorstore"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	vectorStore        vectorstore.VectorStore
	db                 Pinger
	collectionName     string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. db may be nil.
func NewHealthHandler(vectorStore vectorstore.VectorStore, db Pinger, collectionName string) *HealthHandler {
	return &HealthHandler{
		vectorStore:        vectorStore,
		db:                 db,
		collectionName:     collectionName,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// swagger:route GET /healthz healthCheck
//
// # Health check endpoint
//
// Returns 200 when the manifest and vector store are reachable, including
// while the corpus is still empty ("degraded"), and 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Create context with timeout for health checks
	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	unhealthy := false

	if h.db != nil {
		if err := h.db.PingContext(checkCtx); err != nil {
			logger.WarnContext(ctx, "manifest database health check failed", "error", err)
			checks["database"] = "error"
			issues = append(issues, "database_unavailable")
			unhealthy = true
		} else {
			checks["database"] = "ok"
		}
	}

	switch count, ok := h.checkVectorStore(checkCtx, logger); {
	case !ok:
		checks["vector_store"] = "error"
		issues = append(issues, "vector_store_unavailable")
		unhealthy = true
	case count == 0:
		checks["vector_store"] = "empty"
		issues = append(issues, "corpus_not_indexed")
	default:
		checks["vector_store"] = "ok"
	}

	// Determine overall status
	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case unhealthy:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(issues) > 0:
		status = "degraded"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}
	writeJSON(ctx, w, httpStatus, response)
}

// checkVectorStore returns the collection size and whether the store answered.
func (h *HealthHandler) checkVectorStore(ctx context.Context, logger *slog.Logger) (int, bool) {
	count, err := h.vectorStore.Count(ctx, h.collectionName)
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		return 0, false
	}
	return count, true
}
