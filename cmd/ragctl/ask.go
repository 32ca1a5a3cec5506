package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"physiology-rag/internal/service"
)

func newAskCmd(s *session) *cobra.Command {
	var (
		k        int
		document string
		debug    bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := s.app.Ask.Ask(cmd.Context(), service.AskRequest{
				Question: strings.Join(args, " "),
				K:        k,
				Document: document,
				Debug:    debug,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printAnswer(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 0, "chunks to retrieve (default from RETRIEVAL_K)")
	cmd.Flags().StringVar(&document, "document", "", "restrict retrieval to one document")
	cmd.Flags().BoolVar(&debug, "debug", false, "include retrieval diagnostics")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the response as JSON")
	return cmd
}

func printAnswer(w io.Writer, resp service.AskResponse) {
	fmt.Fprintln(w, resp.Answer)
	if resp.Error != "" {
		fmt.Fprintf(w, "\n(error: %s)\n", resp.Error)
	}
	if len(resp.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, src := range resp.Sources {
		page := src.PageID
		if page == "" {
			page = "?"
		}
		fmt.Fprintf(w, "  [%d] %s - %s (page %s) %.3f\n", i+1, src.Document, src.Section, page, src.Score)
		if len(src.Images) > 0 {
			fmt.Fprintf(w, "      figures: %s\n", strings.Join(src.Images, ", "))
		}
	}
	if resp.Debug != nil && resp.Debug.Latency != nil {
		l := resp.Debug.Latency
		fmt.Fprintf(w, "\nretrieval %dms, generation %dms, total %dms\n", l.RetrievalMs, l.GenerationMs, l.TotalMs)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
