package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks physiology-rag/internal/llm Embedder,Generator

import (
	"context"
	"unicode/utf8"
)

// DefaultEmbedInputCap is the maximum number of characters sent to the embedder per text.
const DefaultEmbedInputCap = 1000

// Embedder turns text into vectors. Implementations return *EmbeddingError.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a prompt. Implementations return *GenerationError.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TruncateInput cuts text to at most limit runes. A limit of zero or less
// leaves text unchanged.
func TruncateInput(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}
