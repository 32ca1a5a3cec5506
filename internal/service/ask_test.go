package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"physiology-rag/internal/rag"
	"physiology-rag/internal/service"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeEngine records the last query and returns a fixed answer.
type fakeEngine struct {
	calls  int
	last   rag.Query
	answer rag.Answer
}

func (f *fakeEngine) Ask(_ context.Context, q rag.Query) rag.Answer {
	f.calls++
	f.last = q
	return f.answer
}

func TestAskService_Ask(t *testing.T) {
	sources := []rag.Source{{ChunkID: "cardio_chunk_0", Document: "cardio", Section: "Cardiac Output", PageID: "3", Score: 0.9}}

	tests := []struct {
		name         string
		req          service.AskRequest
		answer       rag.Answer
		wantErr      bool
		wantField    string
		wantCalls    int
		wantQuestion string
	}{
		{
			name:         "successful ask",
			req:          service.AskRequest{Question: "  What is cardiac output?  ", K: 3},
			answer:       rag.Answer{Answer: "SV x HR", Sources: sources, FoundSources: true},
			wantCalls:    1,
			wantQuestion: "What is cardiac output?",
		},
		{
			name:      "empty question",
			req:       service.AskRequest{Question: "   "},
			wantErr:   true,
			wantField: "question",
		},
		{
			name:      "question too long",
			req:       service.AskRequest{Question: strings.Repeat("a", service.MaxQuestionLength+1)},
			wantErr:   true,
			wantField: "question",
		},
		{
			name:      "negative k",
			req:       service.AskRequest{Question: "q", K: -1},
			wantErr:   true,
			wantField: "k",
		},
		{
			name:      "k above maximum",
			req:       service.AskRequest{Question: "q", K: service.MaxK + 1},
			wantErr:   true,
			wantField: "k",
		},
		{
			name:         "engine failure is reported in the response",
			req:          service.AskRequest{Question: "q"},
			answer:       rag.Answer{Answer: "Error retrieving relevant information", Sources: []rag.Source{}, Error: "boom"},
			wantCalls:    1,
			wantQuestion: "q",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{answer: tt.answer}
			svc := service.NewAskService(engine)

			resp, err := svc.Ask(context.Background(), tt.req)

			if engine.calls != tt.wantCalls {
				t.Errorf("engine called %d times, want %d", engine.calls, tt.wantCalls)
			}
			if tt.wantErr {
				var validationErr *service.ValidationError
				if !errors.As(err, &validationErr) || validationErr.Field != tt.wantField {
					t.Fatalf("Ask() error = %v, want validation error on %s", err, tt.wantField)
				}
				if !errors.Is(err, service.ErrInvalidInput) {
					t.Error("validation error should match ErrInvalidInput")
				}
				return
			}
			if err != nil {
				t.Fatalf("Ask() unexpected error = %v", err)
			}
			if engine.last.Question != tt.wantQuestion {
				t.Errorf("engine question = %q, want %q", engine.last.Question, tt.wantQuestion)
			}
			if engine.last.K != tt.req.K {
				t.Errorf("engine k = %d, want %d", engine.last.K, tt.req.K)
			}
			if resp.Answer != tt.answer.Answer || resp.FoundSources != tt.answer.FoundSources || resp.Error != tt.answer.Error {
				t.Errorf("Ask() = %+v, want %+v", resp, tt.answer)
			}
			if len(resp.Sources) != len(tt.answer.Sources) {
				t.Errorf("Ask() returned %d sources, want %d", len(resp.Sources), len(tt.answer.Sources))
			}
		})
	}
}
