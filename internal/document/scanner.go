package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// metadataFiles are tried in order inside each document directory.
var metadataFiles = []string{"metadata.txt", "metadata.json"}

// Source is a document directory found during scanning.
type Source struct {
	Name         string // Directory name, also the document name
	Dir          string // Absolute directory path
	MarkdownPath string // <Dir>/<Name>.md
	MetadataPath string // Empty when the directory has no metadata file
}

// Scan lists the document directories under root in name order.
// A directory is a document when it contains <name>.md.
func Scan(ctx context.Context, root string) ([]Source, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read processed directory %s: %w", root, err)
	}

	var sources []Source
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}

		dir, err := filepath.Abs(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path for %s: %w", e.Name(), err)
		}
		mdPath := filepath.Join(dir, e.Name()+".md")
		if _, err := os.Stat(mdPath); err != nil {
			continue
		}

		src := Source{Name: e.Name(), Dir: dir, MarkdownPath: mdPath}
		for _, name := range metadataFiles {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				src.MetadataPath = p
				break
			}
		}
		sources = append(sources, src)
	}

	slices.SortFunc(sources, func(a, b Source) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return sources, nil
}
