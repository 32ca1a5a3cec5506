package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/text/unicode/norm"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/metadata"
)

// Loader reads Sources into Documents.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the markdown, metadata and images of one source.
//
// Unreadable markdown is an error. Missing or malformed metadata is not: the
// document is returned with empty metadata so segmentation falls back.
func (l *Loader) Load(ctx context.Context, src Source) (Document, error) {
	logger := contextutil.LoggerOr(ctx, l.logger).With("document", src.Name)

	raw, err := os.ReadFile(src.MarkdownPath)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read markdown for %s: %w", src.Name, err)
	}

	hash := sha256.Sum256(raw)
	doc := Document{
		Name: src.Name,
		Dir:  src.Dir,
		Text: norm.NFC.String(string(raw)),
		Hash: hex.EncodeToString(hash[:]),
	}

	if src.MetadataPath != "" {
		data, err := os.ReadFile(src.MetadataPath)
		if err != nil {
			logger.WarnContext(ctx, "metadata unreadable, using fallback segmentation", "path", src.MetadataPath, "error", err)
		} else if md, err := metadata.Decode(data); err != nil {
			logger.WarnContext(ctx, "metadata malformed, using fallback segmentation", "path", src.MetadataPath, "error", err)
		} else {
			doc.Metadata = md
		}
	}

	images, err := listImages(src.Dir)
	if err != nil {
		logger.WarnContext(ctx, "failed to list images", "error", err)
	}
	doc.Images = images

	logger.DebugContext(ctx, "document loaded",
		"chars", len(doc.Text),
		"toc_entries", len(doc.Metadata.TOC),
		"page_stats", len(doc.Metadata.PageStats),
		"images", len(doc.Images),
	)
	return doc, nil
}

// LoadAll scans root and loads every document. Documents that fail to load are
// returned in failures keyed by name; the rest are returned in scan order.
func (l *Loader) LoadAll(ctx context.Context, root string) ([]Document, map[string]error, error) {
	sources, err := Scan(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	docs := make([]Document, 0, len(sources))
	failures := make(map[string]error)
	for _, src := range sources {
		select {
		case <-ctx.Done():
			return docs, failures, ctx.Err()
		default:
		}
		doc, err := l.Load(ctx, src)
		if err != nil {
			failures[src.Name] = err
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failures, nil
}
