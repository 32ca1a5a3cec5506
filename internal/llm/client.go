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

// Client generates answers through an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
}

// NewClient creates a new chat client. A zero timeout leaves requests bounded
// only by the caller's context.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Choices []ChatChoice `json:"choices"`
}

// Generate sends prompt as a single user message and returns the reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	payload := ChatRequest{
		Model:       c.Model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &GenerationError{Op: "encode", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", &GenerationError{Op: "request", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &GenerationError{Op: "send", Transient: isTransientCause(err), Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", &GenerationError{
			Op:         "chat",
			StatusCode: resp.StatusCode,
			Transient:  transientStatus(resp.StatusCode),
			Err:        fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &GenerationError{Op: "decode", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &GenerationError{Op: "chat", Err: errors.New("no choices returned")}
	}

	return chatResp.Choices[0].Message.Content, nil
}
