package vectorstore

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Metadata keys stored with every point.
const (
	MetaChunkID     = "chunk_id"
	MetaDocument    = "document_name"
	MetaTitle       = "section_title"
	MetaPageID      = "page_id"
	MetaChunkIndex  = "chunk_index"
	MetaChunkSize   = "chunk_size"
	MetaContentType = "content_type"
	MetaImages      = "images"
	MetaOversized   = "oversized"
	MetaText        = "text"
)

// pointNamespace scopes the name-based UUIDs derived from chunk ids.
var pointNamespace = uuid.MustParse("6f1c9a52-3b0e-4c7e-9d35-2a8f4e1b7c60")

// PointUUID returns the stable UUID used for a chunk id in stores that only
// accept UUID or integer keys.
func PointUUID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// MetaString reads a string field, formatting non-string values.
func MetaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// MetaInt reads an integer field stored by any backend (int, int64, float64 or string).
func MetaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// MetaBool reads a boolean field. Backends without booleans store 0 or 1.
func MetaBool(meta map[string]any, key string) bool {
	switch v := meta[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return MetaInt(meta, key) != 0
	}
}
