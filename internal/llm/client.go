// Package llm is the advisory chat-completion collaborator boundary. Results
// are always advisory: callers degrade to their deterministic tiers when the
// provider fails or times out.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/engramdev/engram/internal/config"
)

// Completer is the single-method capability the core depends on. Tests use a
// deterministic stub; production wires the HTTP client below.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type httpCompleter struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewCompleter builds the OpenAI-compatible chat client, or nil when no
// model is configured — a nil Completer just means Tier-3 checks are off.
func NewCompleter(cfg *config.Config) Completer {
	model := strings.TrimSpace(cfg.LLM.Model)
	if model == "" {
		return nil
	}
	return &httpCompleter{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/"),
		apiKey:    strings.TrimSpace(cfg.LLM.APIKey),
		model:     model,
		maxTokens: cfg.LLM.MaxTokens,
		client:    &http.Client{Timeout: time.Duration(cfg.LLM.TimeoutMs) * time.Millisecond},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *httpCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("complete: missing llm base url")
	}

	payload, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("complete: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("complete: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("complete: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("complete: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("complete: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("complete: decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("complete: empty choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
