package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"physiology-rag/internal/indexer"
)

func newStatsCmd(s *session) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := s.app.Corpus.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output statistics as JSON")
	return cmd
}

func printStats(w io.Writer, st *indexer.CorpusStats) {
	fmt.Fprintf(w, "Documents: %d (%d fallback)\n", st.Documents, st.FallbackDocs)
	fmt.Fprintf(w, "Chunks:    %d (%d oversized, %d vectors)\n", st.Chunks, st.Oversized, st.VectorCount)
	fmt.Fprintf(w, "Chunk chars: min %d, max %d, mean %.1f, p95 %d\n",
		st.ChunkChars.Min, st.ChunkChars.Max, st.ChunkChars.Mean, st.ChunkChars.P95)
	fmt.Fprintf(w, "Index:     %s (chunker %s, model %s)\n", st.IndexVersion, st.ChunkerVersion, st.Settings.EmbeddingModel)
	for _, d := range st.DocumentChunks {
		fmt.Fprintf(w, "  %-30s %4d chunks %3d images  %s\n", d.Name, d.Chunks, d.Images, d.Mode)
	}
}
