// Package mcpserver exposes the question-answering core to MCP clients as
// tools and resources.
package mcpserver

import "errors"

var (
	// ErrMissingAskService is returned when no AskService is provided.
	ErrMissingAskService = errors.New("mcpserver: ask service is required")
	// ErrMissingCorpusService is returned when no CorpusService is provided.
	ErrMissingCorpusService = errors.New("mcpserver: corpus service is required")
)
