package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"physiology-rag/internal/app"
	"physiology-rag/internal/config"
	"physiology-rag/internal/indexer"
	"physiology-rag/internal/llm"
	"physiology-rag/internal/rag"
	"physiology-rag/internal/service"
)

const testAnswer = "The heart pumps blood through the body."

// modelServer fakes the OpenAI-compatible embeddings and chat endpoints.
func modelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req llm.EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var resp llm.EmbeddingsResponse
		for i, text := range req.Input {
			resp.Data = append(resp.Data, llm.EmbeddingData{
				Index:     i,
				Embedding: []float64{1, float64(len(text)%5) / 10, 0.5, 0.1},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(llm.ChatResponse{Choices: []llm.ChatChoice{{
			Message: llm.ChatMessage{Role: "assistant", Content: testAnswer},
		}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	docDir := filepath.Join(processed, "cardio")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("The heart pumps blood through the body. ", 3) + "\n\n" +
		strings.Repeat("Systole is the contraction of the ventricles. ", 3)
	if err := os.WriteFile(filepath.Join(docDir, "cardio.md"), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := modelServer(t)
	cfg := &config.Config{
		ProcessedDir:       processed,
		DBPath:             filepath.Join(dir, "ragctl.db"),
		ChunkMaxSize:       1000,
		ContextBudget:      3000,
		MaxSources:         3,
		RetrievalK:         5,
		EmbedBatchSize:     10,
		EmbedInputCap:      1000,
		EmbedRPS:           100,
		RetryAttempts:      1,
		LLMTimeout:         5 * time.Second,
		Rerank:             true,
		EmbeddingProvider:  config.ProviderOpenAI,
		GenerationProvider: config.ProviderOpenAI,
		LLMBaseURL:         srv.URL,
		EmbeddingBaseURL:   srv.URL,
		EmbeddingModelName: "test-embed",
		VectorBackend:      config.VectorBackendMemory,
		VectorSize:         4,
		QdrantCollection:   "physiology_test",
		CacheBackend:       config.CacheBackendNone,
	}

	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// execute runs one command against a shared app; the app outlives the command.
func execute(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCmd(func(context.Context) (*app.App, error) { return a, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRagctl_BuildAskStats(t *testing.T) {
	a := testApp(t)

	out, err := execute(t, a, "build")
	if err != nil {
		t.Fatalf("build error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "documents:       1") {
		t.Errorf("build output missing document count:\n%s", out)
	}

	out, err = execute(t, a, "ask", "What", "does", "the", "heart", "do?")
	if err != nil {
		t.Fatalf("ask error = %v", err)
	}
	if !strings.Contains(out, testAnswer) || !strings.Contains(out, "Sources:") || !strings.Contains(out, "cardio") {
		t.Errorf("ask output missing answer or sources:\n%s", out)
	}

	out, err = execute(t, a, "stats", "--json")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	var stats indexer.CorpusStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, out)
	}
	if stats.Documents != 1 || stats.Chunks == 0 || stats.VectorCount != stats.Chunks {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRagctl_AskValidation(t *testing.T) {
	a := testApp(t)

	if _, err := execute(t, a, "ask"); err == nil {
		t.Error("ask without a question should fail")
	}
	if _, err := execute(t, a, "ask", "-k", "50", "question"); err == nil {
		t.Error("ask with k above the limit should fail")
	}
}

func TestRagctl_AskEmptyCorpus(t *testing.T) {
	a := testApp(t)

	out, err := execute(t, a, "ask", "--json", "What is preload?")
	if err != nil {
		t.Fatalf("ask error = %v", err)
	}
	var resp service.AskResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("ask output is not JSON: %v\n%s", err, out)
	}
	if resp.Answer != rag.InsufficientInformation || resp.FoundSources {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, service.AskResponse{
		Answer:       "SV x HR",
		FoundSources: true,
		Sources: []rag.Source{
			{Document: "cardio", Section: "Cardiac Output", PageID: "3-4", Score: 0.9, Images: []string{"_page_3_Figure_1.jpeg"}},
			{Document: "cardio", Section: "Preload", Score: 0.5},
		},
	})

	out := buf.String()
	for _, want := range []string{"SV x HR", "[1] cardio - Cardiac Output (page 3-4) 0.900", "figures: _page_3_Figure_1.jpeg", "[2] cardio - Preload (page ?)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root, _ := newRootCmd(openApp)
	want := map[string]bool{"build": false, "ask": false, "stats": false, "watch": false, "mcp": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
