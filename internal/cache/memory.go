package cache

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a thread-safe LRU cache whose entries also expire after a TTL.
type Memory struct {
	lru    *expirable.LRU[string, []byte]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates a cache holding at most maxEntries values for ttl each.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.lru.Get(key)
	if !ok {
		// Expired entries stay resident until the purge loop reaches them.
		m.lru.Remove(key)
		m.misses.Add(1)
		return nil, false, nil
	}
	m.hits.Add(1)
	return slices.Clone(value), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, slices.Clone(value))
	return nil
}

// Clear drops every entry and resets the counters.
func (m *Memory) Clear() {
	m.lru.Purge()
	m.hits.Store(0)
	m.misses.Store(0)
}

func (m *Memory) Stats() Stats {
	return newStats(m.lru.Len(), m.hits.Load(), m.misses.Load())
}
