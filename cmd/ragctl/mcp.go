package main

import (
	"github.com/spf13/cobra"

	"physiology-rag/internal/mcpserver"
)

func newMCPCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask_question and corpus_stats tools over stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout for AI assistants.

Example client configuration:
  {
    "mcpServers": {
      "physiology": {
        "command": "/path/to/ragctl",
        "args": ["mcp"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := mcpserver.NewServer(&mcpserver.Ports{
				Ask:    s.app.Ask,
				Corpus: s.app.Corpus,
			})
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
}
