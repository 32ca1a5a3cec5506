package storage

import "time"

// DocumentRecord is one manifest row: a source document and what it contributed.
type DocumentRecord struct {
	Name       string
	Hash       string // SHA256 hex string of the markdown content
	Mode       string // "structured" or "fallback"
	Layout     string // How pages were located in the text
	ChunkCount int
	ImageCount int
	BuiltAt    time.Time
}

// ChunkRecord is a persisted chunk. ID matches the vector store point's chunk id.
type ChunkRecord struct {
	ID           string // "<document>_chunk_<index>"
	DocumentName string
	ChunkIndex   int
	Title        string
	PageID       string // "3", "3-5", or empty when unknown
	ContentType  string
	CharCount    int
	Oversized    bool
	Images       []string // Image filenames, stored as a JSON array
	Text         string
}
