package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"physiology-rag/internal/rag"
	"physiology-rag/internal/service"
	"physiology-rag/internal/service/mocks"
)

func TestAskHandler_ServeHTTP(t *testing.T) {
	sources := []rag.Source{{
		ChunkID:  "cardio_chunk_0",
		Document: "cardio",
		Section:  "Cardiac Output",
		PageID:   "3-4",
		Score:    0.91,
		Images:   []string{"_page_3_Figure_1.jpeg"},
		Preview:  "Cardiac output equals stroke volume times heart rate.",
	}}

	tests := []struct {
		name           string
		body           string
		query          string
		mockSetup      func(m *mocks.MockAskService)
		expectedStatus int
		check          func(t *testing.T, resp AskResponse)
	}{
		{
			name: "answer with sources",
			body: `{"question":"What is cardiac output?","k":3}`,
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().Ask(gomock.Any(), service.AskRequest{Question: "What is cardiac output?", K: 3}).
					Return(service.AskResponse{Answer: "SV x HR", Sources: sources, FoundSources: true}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp AskResponse) {
				if !resp.FoundSources || len(resp.Sources) != 1 {
					t.Fatalf("unexpected response %+v", resp)
				}
				if resp.Sources[0].PageID != "3-4" || resp.Sources[0].Images[0] != "_page_3_Figure_1.jpeg" {
					t.Errorf("source attribution lost: %+v", resp.Sources[0])
				}
			},
		},
		{
			name: "no sources",
			body: `{"question":"Unknown topic?"}`,
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().Ask(gomock.Any(), gomock.Any()).
					Return(service.AskResponse{Answer: rag.InsufficientInformation, Sources: []rag.Source{}}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp AskResponse) {
				if resp.FoundSources || resp.Sources == nil || len(resp.Sources) != 0 {
					t.Errorf("expected empty sources list, got %+v", resp)
				}
			},
		},
		{
			name:  "debug flag forwarded",
			body:  `{"question":"q"}`,
			query: "debug=1",
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().Ask(gomock.Any(), service.AskRequest{Question: "q", Debug: true}).
					Return(service.AskResponse{Answer: "a", Sources: sources, FoundSources: true, Debug: &rag.DebugInfo{
						RetrievedChunks: []rag.RetrievedChunk{{ChunkID: "cardio_chunk_0", Rank: 1, Selected: true}},
					}}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp AskResponse) {
				if resp.Debug == nil || len(resp.Debug.RetrievedChunks) != 1 {
					t.Errorf("expected debug info, got %+v", resp.Debug)
				}
			},
		},
		{
			name:           "invalid body",
			body:           `{"question":`,
			mockSetup:      func(m *mocks.MockAskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error",
			body: `{"question":""}`,
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().Ask(gomock.Any(), gomock.Any()).
					Return(service.AskResponse{}, &service.ValidationError{Field: "question", Message: "cannot be empty"})
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unexpected error",
			body: `{"question":"q"}`,
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(service.AskResponse{}, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mocks.NewMockAskService(ctrl)
			tt.mockSetup(mockService)
			handler := NewAskHandler(mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader([]byte(tt.body)))
			req.URL.RawQuery = tt.query
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.check == nil {
				var errResp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil || errResp.Error == "" {
					t.Errorf("expected error body, got %q", w.Body.String())
				}
				return
			}
			var resp AskResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			tt.check(t, resp)
		})
	}
}

func TestAskHandler_MethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewAskHandler(mocks.NewMockAskService(ctrl))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ask", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestAskResponse_JSONShape(t *testing.T) {
	body, err := json.Marshal(AskResponse{Answer: "a", Sources: []SourceResponse{}})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"answer"`, `"sources":[]`, `"found_sources":false`} {
		if !strings.Contains(string(body), key) {
			t.Errorf("response %s missing %s", body, key)
		}
	}
}
