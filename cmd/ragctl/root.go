package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"physiology-rag/internal/app"
	"physiology-rag/internal/config"
	"physiology-rag/internal/contextutil"
)

// opener builds the application for a command run.
type opener func(ctx context.Context) (*app.App, error)

// openApp loads configuration from the environment and wires the application.
// Logs go to stderr so stdout stays free for command output and MCP framing.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return app.New(contextutil.WithLogger(ctx, logger), cfg, logger)
}

// session carries the opened application between a command's hooks.
type session struct {
	open opener
	app  *app.App
}

// close releases the application if a command opened it.
func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

// newRootCmd returns the command tree and a cleanup func that must run after
// Execute, whether or not the command failed.
func newRootCmd(open opener) (*cobra.Command, func() error) {
	s := &session{open: open}
	var dir string

	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Build and query the physiology document corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if dir != "" {
				if err := os.Setenv("PROCESSED_DIR", dir); err != nil {
					return err
				}
			}
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			s.app = a
			cmd.SetContext(contextutil.WithLogger(cmd.Context(), a.Logger))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "processed documents directory (overrides PROCESSED_DIR)")

	root.AddCommand(
		newBuildCmd(s),
		newAskCmd(s),
		newStatsCmd(s),
		newWatchCmd(s),
		newMCPCmd(s),
	)
	return root, s.close
}
