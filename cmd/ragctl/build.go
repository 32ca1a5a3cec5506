package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"physiology-rag/internal/indexer"
)

func newBuildCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the corpus from the processed directory",
		Long: `Loads every document under the processed directory, segments and packs
it into chunks, embeds the chunks and replaces the manifest and vector index.

Per-document and per-batch failures are reported and make the command exit
non-zero; the documents that did succeed remain indexed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := s.app.Config.ProcessedDir
			report, err := s.app.Pipeline.Build(cmd.Context(), root)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			if n := len(report.Failures); n > 0 {
				return fmt.Errorf("build completed with %d failures", n)
			}
			return nil
		},
	}
}

func printReport(w io.Writer, r *indexer.BuildReport) {
	fmt.Fprintf(w, "Run %s finished in %dms\n", r.RunID, r.DurationMS)
	fmt.Fprintf(w, "  documents:       %d (%d fallback)\n", r.Documents, r.FallbackDocs)
	fmt.Fprintf(w, "  chunks:          %d (%d oversized)\n", r.Chunks, r.Oversized)
	fmt.Fprintf(w, "  chunks embedded: %d\n", r.ChunksEmbedded)
	fmt.Fprintf(w, "  batches:         %d ok, %d failed\n", r.BatchesOK, r.BatchesFailed)
	if len(r.Failures) == 0 {
		return
	}
	fmt.Fprintln(w, "Failures:")
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  [%s] %s: %v\n", f.Stage, f.Unit, f.Err)
	}
}
