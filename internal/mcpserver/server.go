package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"physiology-rag/internal/service"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Ports are the services the MCP server drives.
type Ports struct {
	Ask    service.AskService
	Corpus service.CorpusService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	if p.Corpus == nil {
		return ErrMissingCorpusService
	}
	return nil
}

// Server is the MCP server for the physiology corpus.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a Server with its tools and resources registered.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "physiology-rag",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
