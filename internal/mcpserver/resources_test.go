package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physiology-rag/internal/service"
	"physiology-rag/internal/storage"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestExtractDocumentName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"physiology://documents/cardio/chunks", "cardio"},
		{"physiology://documents//chunks", ""},
		{"physiology://documents/a/b/chunks", ""},
		{"physiology://documents/cardio", ""},
		{"other://documents/cardio/chunks", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractDocumentName(tt.uri), tt.uri)
	}
}

func TestServer_handleDocumentChunks(t *testing.T) {
	ctx := context.Background()

	t.Run("returns chunks as json", func(t *testing.T) {
		corpus := &mockCorpusService{chunks: []storage.ChunkRecord{
			{ID: "renal_chunk_0", ChunkIndex: 0, Title: "Nephron", PageID: "10", ContentType: "section", Text: "The nephron..."},
		}}
		server := newTestServer(t, &mockAskService{}, corpus)

		uri := "physiology://documents/renal/chunks"
		result, err := server.handleDocumentChunks(ctx, makeReadResourceRequest(uri))

		require.NoError(t, err)
		assert.Equal(t, "renal", corpus.name)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, uri, result.Contents[0].URI)

		var chunks []chunkInfo
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &chunks))
		require.Len(t, chunks, 1)
		assert.Equal(t, "Nephron", chunks[0].Title)
	})

	t.Run("unknown document", func(t *testing.T) {
		corpus := &mockCorpusService{err: service.WrapError(service.ErrNotFound, "document renal")}
		server := newTestServer(t, &mockAskService{}, corpus)

		_, err := server.handleDocumentChunks(ctx, makeReadResourceRequest("physiology://documents/renal/chunks"))

		require.Error(t, err)
	})

	t.Run("malformed uri", func(t *testing.T) {
		server := newTestServer(t, &mockAskService{}, &mockCorpusService{})

		_, err := server.handleDocumentChunks(ctx, makeReadResourceRequest("physiology://documents"))

		require.Error(t, err)
	})
}
