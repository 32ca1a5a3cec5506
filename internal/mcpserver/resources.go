package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"physiology-rag/internal/service"
)

const uriScheme = "physiology://"

func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{name}/chunks",
		Name:        "document-chunks",
		Description: "Chunks of one indexed document in reading order",
		MIMEType:    "application/json",
	}, s.handleDocumentChunks)
}

type chunkInfo struct {
	ID          string   `json:"id"`
	ChunkIndex  int      `json:"chunk_index"`
	Title       string   `json:"section_title"`
	PageID      string   `json:"page_id"`
	ContentType string   `json:"content_type"`
	CharCount   int      `json:"char_count"`
	Images      []string `json:"images,omitempty"`
	Text        string   `json:"text"`
}

func (s *Server) handleDocumentChunks(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractDocumentName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Corpus.DocumentChunks(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	infos := make([]chunkInfo, len(records))
	for i, rec := range records {
		infos[i] = chunkInfo{
			ID:          rec.ID,
			ChunkIndex:  rec.ChunkIndex,
			Title:       rec.Title,
			PageID:      rec.PageID,
			ContentType: rec.ContentType,
			CharCount:   rec.CharCount,
			Images:      rec.Images,
			Text:        rec.Text,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling chunks: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentName pulls name out of physiology://documents/{name}/chunks.
func extractDocumentName(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+"documents/")
	if !ok {
		return ""
	}
	name, ok := strings.CutSuffix(rest, "/chunks")
	if !ok || name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}
