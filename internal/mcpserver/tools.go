package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"physiology-rag/internal/indexer"
	"physiology-rag/internal/service"
)

// AskInput is the input schema for the ask_question tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the physiology question to answer"`
	K        int    `json:"k,omitempty" jsonschema:"number of chunks to retrieve (default 5, at most 20)"`
	Document string `json:"document,omitempty" jsonschema:"restrict retrieval to one document name"`
}

// AskOutput is the output schema for the ask_question tool.
type AskOutput struct {
	Answer       string         `json:"answer"`
	Sources      []SourceOutput `json:"sources"`
	FoundSources bool           `json:"found_sources"`
	Error        string         `json:"error,omitempty"`
}

// SourceOutput is one cited chunk.
type SourceOutput struct {
	ChunkID  string   `json:"chunk_id"`
	Document string   `json:"document"`
	Section  string   `json:"section"`
	PageID   string   `json:"page_id"`
	Score    float32  `json:"score"`
	Images   []string `json:"images,omitempty"`
	Preview  string   `json:"preview,omitempty"`
}

// StatsInput is the (empty) input schema for the corpus_stats tool.
type StatsInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a physiology question from the indexed textbook corpus, citing the sections used",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "corpus_stats",
		Description: "Report document and chunk counts, chunk size statistics and the index version",
	}, s.handleStats)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.ports.Ask.Ask(ctx, service.AskRequest{
		Question: input.Question,
		K:        input.K,
		Document: input.Document,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:       resp.Answer,
		Sources:      make([]SourceOutput, len(resp.Sources)),
		FoundSources: resp.FoundSources,
		Error:        resp.Error,
	}
	for i, src := range resp.Sources {
		output.Sources[i] = SourceOutput{
			ChunkID:  src.ChunkID,
			Document: src.Document,
			Section:  src.Section,
			PageID:   src.PageID,
			Score:    src.Score,
			Images:   src.Images,
			Preview:  src.Preview,
		}
	}

	return nil, output, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, indexer.CorpusStats, error) {
	stats, err := s.ports.Corpus.Stats(ctx)
	if err != nil {
		return nil, indexer.CorpusStats{}, err
	}
	return nil, *stats, nil
}
