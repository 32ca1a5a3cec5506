package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/llm"
	"physiology-rag/internal/metrics"
)

// CachedEmbedder serves embeddings from a Cache and forwards misses to the
// wrapped Embedder. Cache failures are logged and treated as misses.
type CachedEmbedder struct {
	next    llm.Embedder
	cache   Cache
	model   string
	metrics *metrics.Metrics
}

var _ llm.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next. model is part of every key so switching
// models never returns stale vectors. m may be nil.
func NewCachedEmbedder(next llm.Embedder, c Cache, model string, m *metrics.Metrics) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c, model: model, metrics: m}
}

// Key returns the cache key of text under model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)
	out := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := e.lookup(ctx, text); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := e.cache.Set(ctx, Key(e.model, texts[i]), encodeVector(vecs[j])); err != nil {
			logger.WarnContext(ctx, "failed to cache embedding", "error", err)
		}
	}
	return out, nil
}

func (e *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	raw, ok, err := e.cache.Get(ctx, Key(e.model, text))
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "embedding cache lookup failed", "error", err)
	}
	if !ok {
		e.metrics.CacheLookup(false)
		return nil, false
	}
	vec, err := decodeVector(raw)
	if err != nil {
		e.metrics.CacheLookup(false)
		return nil, false
	}
	e.metrics.CacheLookup(true)
	return vec, true
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}
