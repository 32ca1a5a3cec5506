package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient embeds and generates through the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	embedModel string
	genModel   string
	inputCap   int
	vectorSize int
}

// NewGeminiClient creates a Gemini-backed Embedder and Generator.
func NewGeminiClient(ctx context.Context, apiKey, embedModel, genModel string, vectorSize, inputCap int) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		embedModel: embedModel,
		genModel:   genModel,
		inputCap:   inputCap,
		vectorSize: vectorSize,
	}, nil
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Op: "batch", Err: errors.New("empty input array")}
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.Text(TruncateInput(t, g.inputCap))...)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{})
	if err != nil {
		code, transient := classifyGemini(err)
		return nil, &EmbeddingError{Op: "batch", StatusCode: code, Transient: transient, Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &EmbeddingError{Op: "batch", Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))}
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if g.vectorSize > 0 && len(e.Values) != g.vectorSize {
			return nil, &EmbeddingError{Op: "batch", Err: fmt.Errorf("embedding %d has size %d, expected %d", i, len(e.Values), g.vectorSize)}
		}
		out[i] = e.Values
	}
	return out, nil
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.genModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
	})
	if err != nil {
		code, transient := classifyGemini(err)
		return "", &GenerationError{Op: "generate", StatusCode: code, Transient: transient, Err: err}
	}
	text := resp.Text()
	if text == "" {
		return "", &GenerationError{Op: "generate", Err: errors.New("empty response")}
	}
	return text, nil
}

// classifyGemini extracts the HTTP status of an API error and whether it is
// worth retrying.
func classifyGemini(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, transientStatus(apiErr.Code)
	}
	return 0, isTransientCause(err)
}
