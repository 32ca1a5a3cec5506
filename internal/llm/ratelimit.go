package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder holds each call to the wrapped Embedder behind a token
// bucket, so bulk embedding stays inside provider quotas.
type RateLimitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder allows rps calls per second with the given burst.
// A non-positive rps disables limiting.
func NewRateLimitedEmbedder(next Embedder, rps float64, burst int) *RateLimitedEmbedder {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimitedEmbedder{
		next:    next,
		limiter: rate.NewLimiter(limit, max(burst, 1)),
	}
}

func (e *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	return e.next.Embed(ctx, text)
}

func (e *RateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	return e.next.EmbedBatch(ctx, texts)
}

func (e *RateLimitedEmbedder) wait(ctx context.Context) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return &EmbeddingError{Op: "rate-limit", Transient: isTransientCause(err), Err: fmt.Errorf("failed waiting for rate limiter: %w", err)}
	}
	return nil
}
