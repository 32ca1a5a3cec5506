package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"physiology-rag/internal/metrics"
	"physiology-rag/internal/service"
	"physiology-rag/internal/service/mocks"
	"physiology-rag/internal/vectorstore"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockAskService, *mocks.MockCorpusService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	ask := mocks.NewMockAskService(ctrl)
	corpus := mocks.NewMockCorpusService(ctrl)

	router := NewRouter(&Deps{
		AskService:    ask,
		CorpusService: corpus,
		VectorStore:   vectorstore.NewMemoryStore(),
		Collection:    "physiology",
		Metrics:       metrics.New(),
	})
	return router, ask, corpus
}

func TestNewRouter(t *testing.T) {
	router, _, _ := newTestRouter(t)
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func(ask *mocks.MockAskService, corpus *mocks.MockCorpusService)
		wantStatus int
	}{
		{
			name:       "GET /healthz on empty corpus",
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /metrics",
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
		{
			name:   "POST /api/v1/ask",
			method: http.MethodPost,
			path:   "/api/v1/ask",
			body:   `{"question":"What is preload?"}`,
			setup: func(ask *mocks.MockAskService, _ *mocks.MockCorpusService) {
				ask.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(service.AskResponse{Answer: "a"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/v1/ask bad body",
			method:     http.MethodPost,
			path:       "/api/v1/ask",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /api/v1/ask method not allowed",
			method:     http.MethodGet,
			path:       "/api/v1/ask",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:   "POST /api/v1/index/rebuild",
			method: http.MethodPost,
			path:   "/api/v1/index/rebuild",
			setup: func(_ *mocks.MockAskService, corpus *mocks.MockCorpusService) {
				corpus.EXPECT().StartRebuild(gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:   "GET /api/v1/index/status",
			method: http.MethodGet,
			path:   "/api/v1/index/status",
			setup: func(_ *mocks.MockAskService, corpus *mocks.MockCorpusService) {
				corpus.EXPECT().LastBuild().Return(nil, false)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "GET /api/v1/stats",
			method: http.MethodGet,
			path:   "/api/v1/stats",
			setup: func(_ *mocks.MockAskService, corpus *mocks.MockCorpusService) {
				corpus.EXPECT().Stats(gomock.Any()).Return(nil, service.ErrExternalService)
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "GET /api/v1/documents/{name}/chunks",
			method: http.MethodGet,
			path:   "/api/v1/documents/renal/chunks",
			setup: func(_ *mocks.MockAskService, corpus *mocks.MockCorpusService) {
				corpus.EXPECT().DocumentChunks(gomock.Any(), "renal").Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/v1/unknown",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, ask, corpus := newTestRouter(t)
			if tt.setup != nil {
				tt.setup(ask, corpus)
			}

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_MetricsExposition(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(w.Body.String(), "physiology_rag_") {
		t.Error("metrics endpoint should expose physiology_rag collectors")
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Check CORS headers are present
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
