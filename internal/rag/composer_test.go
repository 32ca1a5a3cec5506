package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"physiology-rag/internal/llm"
	llm_mocks "physiology-rag/internal/llm/mocks"
)

func testContext() AssembledContext {
	return AssembledContext{
		Text:    "Source 1: cardio - Preload (Page 4) [Relevance: 0.900]\nPreload is end-diastolic stretch.",
		Sources: []Source{{ChunkID: "cardio_chunk_3", Document: "cardio", Section: "Preload", PageID: "4", Score: 0.9}},
	}
}

func fastRetry(attempts int) llm.RetryPolicy {
	return llm.RetryPolicy{Attempts: attempts, BaseDelay: time.Millisecond, Factor: 1}
}

func TestComposer_Compose(t *testing.T) {
	transient := &llm.GenerationError{Op: "chat", StatusCode: 503, Transient: true, Err: errors.New("unavailable")}

	tests := []struct {
		name      string
		actx      AssembledContext
		setup     func(g *llm_mocks.MockGenerator)
		wantFound bool
		wantError bool
		check     func(t *testing.T, a Answer)
	}{
		{
			name:  "no sources skips generation",
			actx:  AssembledContext{},
			setup: func(g *llm_mocks.MockGenerator) {},
			check: func(t *testing.T, a Answer) {
				if a.Answer != InsufficientInformation || a.Sources == nil || len(a.Sources) != 0 {
					t.Errorf("unexpected answer %+v", a)
				}
			},
		},
		{
			name: "answer is trimmed",
			actx: testContext(),
			setup: func(g *llm_mocks.MockGenerator) {
				g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("  Preload is stretch.\n", nil)
			},
			wantFound: true,
			check: func(t *testing.T, a Answer) {
				if a.Answer != "Preload is stretch." || len(a.Sources) != 1 {
					t.Errorf("unexpected answer %+v", a)
				}
			},
		},
		{
			name: "empty generation",
			actx: testContext(),
			setup: func(g *llm_mocks.MockGenerator) {
				g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("   ", nil)
			},
			wantFound: true,
			check: func(t *testing.T, a Answer) {
				if a.Answer != emptyGeneration {
					t.Errorf("expected fallback text, got %q", a.Answer)
				}
			},
		},
		{
			name: "transient failure is retried",
			actx: testContext(),
			setup: func(g *llm_mocks.MockGenerator) {
				gomock.InOrder(
					g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", transient),
					g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("ok", nil),
				)
			},
			wantFound: true,
		},
		{
			name: "failure keeps sources",
			actx: testContext(),
			setup: func(g *llm_mocks.MockGenerator) {
				g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", transient).Times(2)
			},
			wantFound: true,
			wantError: true,
			check: func(t *testing.T, a Answer) {
				if !strings.HasPrefix(a.Answer, "Error generating response:") || len(a.Sources) != 1 {
					t.Errorf("unexpected answer %+v", a)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := llm_mocks.NewMockGenerator(ctrl)
			tt.setup(gen)

			a := NewComposer(gen, fastRetry(2), nil).Compose(context.Background(), "What is preload?", tt.actx)

			if a.FoundSources != tt.wantFound {
				t.Errorf("FoundSources = %v, want %v", a.FoundSources, tt.wantFound)
			}
			if (a.Error != "") != tt.wantError {
				t.Errorf("Error = %q, wantError %v", a.Error, tt.wantError)
			}
			if tt.check != nil {
				tt.check(t, a)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("What is preload?", "CONTEXT")

	if !strings.HasPrefix(prompt, "Based on this physiology information:\n\nCONTEXT\n\nQuestion: What is preload?") {
		t.Errorf("unexpected prompt prefix: %q", prompt)
	}
	if !strings.Contains(prompt, "cite the sources") {
		t.Error("prompt should ask for citations")
	}
}
