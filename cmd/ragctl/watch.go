package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/document"
)

func newWatchCmd(s *session) *cobra.Command {
	var (
		debounce time.Duration
		initial  bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the corpus whenever the processed directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			root := s.app.Config.ProcessedDir
			rebuild := func(ctx context.Context) {
				logger := contextutil.LoggerFromContext(ctx)
				report, err := s.app.Pipeline.Build(ctx, root)
				if err != nil {
					logger.ErrorContext(ctx, "rebuild failed", "error", err)
					return
				}
				logger.InfoContext(ctx, "rebuild finished",
					"documents", report.Documents, "chunks", report.Chunks, "failures", len(report.Failures))
			}
			if initial {
				rebuild(ctx)
			}
			return document.NewWatcher(root, debounce, s.app.Logger).Run(ctx, rebuild)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a rebuild")
	cmd.Flags().BoolVar(&initial, "initial", true, "build once before watching")
	return cmd
}
