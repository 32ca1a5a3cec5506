// Package document loads converted documents (markdown, metadata and figure
// images) from the processed data directory.
package document

import (
	"physiology-rag/internal/metadata"
)

// Document is one converted source file. It is read-only once loaded;
// reprocessing produces a new Document rather than mutating an old one.
type Document struct {
	// Name is the directory name of the document and is unique within the corpus.
	Name string
	Dir  string
	// Text is the NFC-normalized markdown content.
	Text     string
	Metadata metadata.Metadata
	// Images are sorted by page then figure index.
	Images []ImageRef
	// Hash is the sha256 of the raw markdown, hex encoded.
	Hash string
}

// ImageRef is a figure or picture extracted by the converter.
type ImageRef struct {
	Filename string `json:"filename"`
	// Kind is "Figure", "Picture" or "unknown".
	Kind string `json:"kind"`
	// Page is -1 when the filename carries no page number.
	Page        int `json:"page"`
	FigureIndex int `json:"figure_index"`
}

// HasPage reports whether the image's page is known.
func (r ImageRef) HasPage() bool {
	return r.Page >= 0
}
