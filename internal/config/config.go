// Package config loads engram's configuration: defaults, then
// ~/.engram/config.json, then ENGRAM_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultEmbeddingTimeoutMs = 10000
	DefaultEmbeddingBatchSize = 16
	DefaultLLMTimeoutMs       = 30000
	DefaultLLMMaxTokens       = 1024
	DefaultCacheMaxEntries    = 512
	DefaultSearchThreshold    = 0.30
	DefaultDeepThreshold      = 0.25
	DefaultSearchLimit        = 8
	DefaultSuggestThreshold   = 0.75
	DefaultSuggestLimit       = 10
	DefaultOllamaBaseURL      = "http://127.0.0.1:11434"

	engramDirName = ".engram"
)

type Config struct {
	Storage   StorageConfig   `json:"storage"`
	Embedding EmbeddingConfig `json:"embedding"`
	LLM       LLMConfig       `json:"llm"`
	Search    SearchConfig    `json:"search"`
	Cache     CacheConfig     `json:"cache"`
}

// StorageConfig holds one root directory per scope. Each root carries its own
// permanent/, temporary/, graph.json, index.json and semantic/ tree.
type StorageConfig struct {
	LocalRoot      string `json:"localRoot,omitempty"`
	ProjectRoot    string `json:"projectRoot,omitempty"`
	GlobalRoot     string `json:"globalRoot,omitempty"`
	EnterpriseRoot string `json:"enterpriseRoot,omitempty"`
}

// EmbeddingConfig configures the external embedding provider.
type EmbeddingConfig struct {
	Provider  string `json:"provider,omitempty"` // "api" (default) or "ollama"
	BaseURL   string `json:"baseUrl,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
}

// LLMConfig configures the advisory chat-completion provider used by deep
// quality checks and summaries.
type LLMConfig struct {
	BaseURL   string `json:"baseUrl,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

type SearchConfig struct {
	Threshold        float64 `json:"threshold,omitempty"`
	DeepThreshold    float64 `json:"deepThreshold,omitempty"`
	Limit            int     `json:"limit,omitempty"`
	SuggestThreshold float64 `json:"suggestThreshold,omitempty"`
	SuggestLimit     int     `json:"suggestLimit,omitempty"`
}

type CacheConfig struct {
	Dir        string `json:"dir,omitempty"`
	MaxEntries int    `json:"maxEntries,omitempty"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return &Config{
		Storage: StorageConfig{
			LocalRoot:      filepath.Join(cwd, engramDirName, "local"),
			ProjectRoot:    filepath.Join(cwd, engramDirName, "project"),
			GlobalRoot:     filepath.Join(home, engramDirName, "global"),
			EnterpriseRoot: filepath.Join(home, engramDirName, "enterprise"),
		},
		Embedding: EmbeddingConfig{
			Provider:  "api",
			TimeoutMs: DefaultEmbeddingTimeoutMs,
			BatchSize: DefaultEmbeddingBatchSize,
		},
		LLM: LLMConfig{
			MaxTokens: DefaultLLMMaxTokens,
			TimeoutMs: DefaultLLMTimeoutMs,
		},
		Search: SearchConfig{
			Threshold:        DefaultSearchThreshold,
			DeepThreshold:    DefaultDeepThreshold,
			Limit:            DefaultSearchLimit,
			SuggestThreshold: DefaultSuggestThreshold,
			SuggestLimit:     DefaultSuggestLimit,
		},
		Cache: CacheConfig{
			Dir:        filepath.Join(home, engramDirName, "cache", "embeddings"),
			MaxEntries: DefaultCacheMaxEntries,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, engramDirName)
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadConfig layers config.json over defaults and environment variables over
// both. A missing config file is not an error.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyFallbackDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENGRAM_LOCAL_ROOT"); v != "" {
		cfg.Storage.LocalRoot = v
	}
	if v := os.Getenv("ENGRAM_PROJECT_ROOT"); v != "" {
		cfg.Storage.ProjectRoot = v
	}
	if v := os.Getenv("ENGRAM_GLOBAL_ROOT"); v != "" {
		cfg.Storage.GlobalRoot = v
	}
	if v := os.Getenv("ENGRAM_ENTERPRISE_ROOT"); v != "" {
		cfg.Storage.EnterpriseRoot = v
	}
	if v := os.Getenv("ENGRAM_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("ENGRAM_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("ENGRAM_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("ENGRAM_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("ENGRAM_EMBEDDING_DIMENSION"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = parsed
		}
	}
	if v := os.Getenv("ENGRAM_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("ENGRAM_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ENGRAM_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ENGRAM_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("ENGRAM_CACHE_MAX_ENTRIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxEntries = parsed
		}
	}
}

func applyFallbackDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Storage.LocalRoot == "" {
		cfg.Storage.LocalRoot = def.Storage.LocalRoot
	}
	if cfg.Storage.ProjectRoot == "" {
		cfg.Storage.ProjectRoot = def.Storage.ProjectRoot
	}
	if cfg.Storage.GlobalRoot == "" {
		cfg.Storage.GlobalRoot = def.Storage.GlobalRoot
	}
	if cfg.Storage.EnterpriseRoot == "" {
		cfg.Storage.EnterpriseRoot = def.Storage.EnterpriseRoot
	}
	if cfg.Embedding.TimeoutMs <= 0 {
		cfg.Embedding.TimeoutMs = DefaultEmbeddingTimeoutMs
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = DefaultEmbeddingBatchSize
	}
	if cfg.LLM.TimeoutMs <= 0 {
		cfg.LLM.TimeoutMs = DefaultLLMTimeoutMs
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = DefaultLLMMaxTokens
	}
	if cfg.Search.Threshold <= 0 {
		cfg.Search.Threshold = DefaultSearchThreshold
	}
	if cfg.Search.DeepThreshold <= 0 {
		cfg.Search.DeepThreshold = DefaultDeepThreshold
	}
	if cfg.Search.Limit <= 0 {
		cfg.Search.Limit = DefaultSearchLimit
	}
	if cfg.Search.SuggestThreshold <= 0 {
		cfg.Search.SuggestThreshold = DefaultSuggestThreshold
	}
	if cfg.Search.SuggestLimit <= 0 {
		cfg.Search.SuggestLimit = DefaultSuggestLimit
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = def.Cache.Dir
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
}

// SaveConfig writes the config file, creating ~/.engram if needed.
func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}

// ScopeRoot maps a scope name to its storage root, or "" for unknown scopes.
func (c *Config) ScopeRoot(scope string) string {
	switch scope {
	case "local":
		return c.Storage.LocalRoot
	case "project":
		return c.Storage.ProjectRoot
	case "global":
		return c.Storage.GlobalRoot
	case "enterprise":
		return c.Storage.EnterpriseRoot
	default:
		return ""
	}
}
