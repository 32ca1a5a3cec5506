package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"physiology-rag/internal/handlers"
	"physiology-rag/internal/metrics"
	"physiology-rag/internal/service"
	"physiology-rag/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	AskService    service.AskService
	CorpusService service.CorpusService
	VectorStore   vectorstore.VectorStore
	Collection    string
	DB            handlers.Pinger // optional
	Metrics       *metrics.Metrics
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.AskService)
	indexHandler := handlers.NewIndexHandler(deps.CorpusService)
	corpusHandler := handlers.NewCorpusHandler(deps.CorpusService)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.DB, deps.Collection)

	r.Method(http.MethodGet, "/healthz", healthHandler)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/index/rebuild", indexHandler)
		r.Get("/index/status", indexHandler.Status)
		r.Get("/stats", corpusHandler.Stats)
		r.Get("/documents/{name}/chunks", corpusHandler.DocumentChunks)
	})

	return r
}
