// Package cache stores computed embeddings so rebuilds and repeated questions
// do not pay for the same provider call twice.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-valued key store with per-entry expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Stats() Stats
}

// Stats reports lookups since the cache was created.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func newStats(entries int, hits, misses int64) Stats {
	s := Stats{Entries: entries, Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// DefaultTTL is used when a non-positive TTL is configured.
const DefaultTTL = time.Hour
