package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmbeddingsClient embeds text through an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation
	// InputCap is the maximum number of characters sent per text.
	InputCap int
	client   *http.Client
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the configured vector size; every returned embedding is
// validated against it. Inputs longer than inputCap runes are truncated.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize, inputCap int, timeout time.Duration) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		InputCap:     inputCap,
		client:       &http.Client{Timeout: timeout},
	}
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// Embed returns the embedding of a single text.
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for the given texts, one vector per text.
func (c *EmbeddingsClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Op: "batch", Err: errors.New("empty input array")}
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = TruncateInput(t, c.InputCap)
	}

	body, err := json.Marshal(EmbeddingsRequest{Model: c.Model, Input: input})
	if err != nil {
		return nil, &EmbeddingError{Op: "encode", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, &EmbeddingError{Op: "request", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &EmbeddingError{Op: "send", Transient: isTransientCause(err), Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &EmbeddingError{
			Op:         "batch",
			StatusCode: resp.StatusCode,
			Transient:  transientStatus(resp.StatusCode),
			Err:        fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var embeddingsResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, &EmbeddingError{Op: "decode", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(embeddingsResp.Data) != len(texts) {
		return nil, &EmbeddingError{Op: "batch", Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingsResp.Data))}
	}

	// Servers may return embeddings out of order; Index ties each to its input.
	result := make([][]float32, len(embeddingsResp.Data))
	for _, data := range embeddingsResp.Data {
		i := data.Index
		if i < 0 || i >= len(result) || result[i] != nil {
			return nil, &EmbeddingError{Op: "batch", Err: fmt.Errorf("embedding index %d out of range or repeated", i)}
		}
		if len(data.Embedding) != c.ExpectedSize {
			return nil, &EmbeddingError{Op: "batch", Err: fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)}
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}
