// Package embed provides the embedding collaborator boundary, the persistent
// vector cache, and the per-scope semantic index and search over it.
package embed

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

const (
	providerAPI    = "api"
	providerOllama = "ollama"
)

// Embedder is the fallible embedding capability. Callers must treat failures
// as a signal to degrade to keyword search, never as a user-facing error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type httpEmbedder struct {
	provider    string
	baseURL     string
	apiKey      string
	model       string
	expectedDim int
	batchSize   int
	client      *http.Client
}

// NewEmbedder builds the HTTP embedder from config. The timeout on the HTTP
// client is the only thing standing between a slow provider and a hung CLI,
// so it is always set.
func NewEmbedder(cfg *config.Config) Embedder {
	e := &httpEmbedder{
		provider:    providerAPI,
		batchSize:   config.DefaultEmbeddingBatchSize,
		expectedDim: cfg.Embedding.Dimension,
		client:      &http.Client{Timeout: time.Duration(cfg.Embedding.TimeoutMs) * time.Millisecond},
	}
	if p := strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider)); p != "" {
		e.provider = p
	}
	e.baseURL = strings.TrimRight(strings.TrimSpace(cfg.Embedding.BaseURL), "/")
	e.apiKey = strings.TrimSpace(cfg.Embedding.APIKey)
	e.model = strings.TrimSpace(cfg.Embedding.Model)
	if cfg.Embedding.BatchSize > 0 {
		e.batchSize = cfg.Embedding.BatchSize
	}
	if e.provider == providerOllama && e.baseURL == "" {
		e.baseURL = config.DefaultOllamaBaseURL
	}
	return e
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *httpEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("embed: empty text")
	}
	vectors, err := e.request(ctx, trimmed, 1)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vectors[0], nil
}

func (e *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embed batch: empty input")
	}
	cleaned := make([]string, len(texts))
	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, fmt.Errorf("embed batch: empty text at index %d", i)
		}
		cleaned[i] = trimmed
	}

	vectors := make([][]float32, 0, len(cleaned))
	for start := 0; start < len(cleaned); start += e.batchSize {
		end := start + e.batchSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		chunk, err := e.request(ctx, cleaned[start:end], end-start)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		vectors = append(vectors, chunk...)
	}
	return vectors, nil
}

func (e *httpEmbedder) request(ctx context.Context, input any, want int) ([][]float32, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.model == "" {
		return nil, fmt.Errorf("missing embedding model")
	}
	if e.baseURL == "" {
		return nil, fmt.Errorf("missing embedding base url")
	}
	if e.provider == providerAPI && e.apiKey == "" {
		return nil, fmt.Errorf("missing embedding api key")
	}

	payload, err := json.Marshal(embeddingRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return e.collect(decoded, want)
}

func (e *httpEmbedder) collect(decoded embeddingResponse, want int) ([][]float32, error) {
	if len(decoded.Data) != want {
		return nil, fmt.Errorf("response count mismatch: got %d want %d", len(decoded.Data), want)
	}

	vectors := make([][]float32, want)
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= want {
			return nil, fmt.Errorf("invalid embedding index %d", item.Index)
		}
		if vectors[item.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding index %d", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", item.Index)
		}
		if e.expectedDim > 0 && len(item.Embedding) != e.expectedDim {
			return nil, fmt.Errorf("embedding dimension at index %d: got %d want %d", item.Index, len(item.Embedding), e.expectedDim)
		}
		vectors[item.Index] = append([]float32(nil), item.Embedding...)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding index %d", i)
		}
	}
	return vectors, nil
}
