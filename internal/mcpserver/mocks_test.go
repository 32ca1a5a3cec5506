package mcpserver

import (
	"context"

	"physiology-rag/internal/indexer"
	"physiology-rag/internal/service"
	"physiology-rag/internal/storage"
)

type mockAskService struct {
	resp service.AskResponse
	err  error
	last service.AskRequest
}

func (m *mockAskService) Ask(_ context.Context, req service.AskRequest) (service.AskResponse, error) {
	m.last = req
	return m.resp, m.err
}

type mockCorpusService struct {
	stats  *indexer.CorpusStats
	chunks []storage.ChunkRecord
	err    error
	name   string
}

func (m *mockCorpusService) StartRebuild(context.Context) error { return m.err }

func (m *mockCorpusService) LastBuild() (*indexer.BuildReport, bool) { return nil, false }

func (m *mockCorpusService) Stats(context.Context) (*indexer.CorpusStats, error) {
	return m.stats, m.err
}

func (m *mockCorpusService) DocumentChunks(_ context.Context, name string) ([]storage.ChunkRecord, error) {
	m.name = name
	return m.chunks, m.err
}
