package nob

import (
	"encoding/json"
	"os"
	"path/filepath"

	defaults "github.com/hetpatel-11/nob/default"
)

// Config represents the user's nob configuration.
type Config struct {
	Version    int              `json:"version"`
	Generation GenerationConfig `json:"generation"`
	Embedding  EmbeddingConfig  `json:"embedding"`
	Completion CompletionConfig `json:"completion"`
	Agent      AgentConfig      `json:"agent"`
}

// GenerationConfig holds settings for the text-generation API.
type GenerationConfig struct {
	BaseURL     string   `json:"base_url"`
	APIKey      string   `json:"api_key"`
	APIType     string   `json:"api_type"` // "chat_completions" or "responses"
	Model       string   `json:"model"`
	User        string   `json:"user,omitempty"` // opaque caller identifier forwarded upstream
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// EmbeddingConfig holds settings for the optional embedding API used to
// rank history relevance. Leaving base_url or api_key empty disables it.
type EmbeddingConfig struct {
	BaseURL            string `json:"base_url"`
	APIKey             string `json:"api_key"`
	Model              string `json:"model"`
	MaxHistoryCommands int    `json:"max_history_commands,omitempty"`
}

// CompletionConfig holds settings for the inline completion index.
type CompletionConfig struct {
	MaxCandidates  int `json:"max_candidates,omitempty"`
	CacheEntries   int `json:"cache_entries,omitempty"`
	QueryTimeoutMS int `json:"query_timeout_ms,omitempty"`
}

// AgentConfig holds settings for the agent control loop.
type AgentConfig struct {
	HistoryTurns      int `json:"history_turns,omitempty"`
	RequestTimeoutSec int `json:"request_timeout_sec,omitempty"`
	OutputTailBytes   int `json:"output_tail_bytes,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $NOB_CONFIG_DIR > $XDG_CONFIG_HOME/nob > ~/.config/nob
func ConfigDir() string {
	if dir := os.Getenv("NOB_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "nob")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "nob-config")
	}
	return filepath.Join(home, ".config", "nob")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// PromptPath returns the path of an optional custom agent system prompt.
func PromptPath() string {
	return filepath.Join(ConfigDir(), "prompt.md")
}

// DefaultConfig returns the default configuration from the embedded
// default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("nob: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	def := DefaultConfig()
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = def.Generation.BaseURL
	}
	if cfg.Generation.APIType == "" {
		cfg.Generation.APIType = def.Generation.APIType
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = def.Generation.Model
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = def.Generation.MaxTokens
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = def.Generation.Temperature
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.MaxHistoryCommands == 0 {
		cfg.Embedding.MaxHistoryCommands = def.Embedding.MaxHistoryCommands
	}
	if cfg.Completion.MaxCandidates == 0 {
		cfg.Completion.MaxCandidates = def.Completion.MaxCandidates
	}
	if cfg.Completion.CacheEntries == 0 {
		cfg.Completion.CacheEntries = def.Completion.CacheEntries
	}
	if cfg.Completion.QueryTimeoutMS == 0 {
		cfg.Completion.QueryTimeoutMS = def.Completion.QueryTimeoutMS
	}
	if cfg.Agent.HistoryTurns == 0 {
		cfg.Agent.HistoryTurns = def.Agent.HistoryTurns
	}
	if cfg.Agent.RequestTimeoutSec == 0 {
		cfg.Agent.RequestTimeoutSec = def.Agent.RequestTimeoutSec
	}
	if cfg.Agent.OutputTailBytes == 0 {
		cfg.Agent.OutputTailBytes = def.Agent.OutputTailBytes
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if ResolveGenerationAPIKey(cfg) == "" {
		warnings = append(warnings, "generation API key not configured; agent mode will be unavailable (set NOB_GENERATION_API_KEY or edit "+ConfigPath()+")")
	}
	if cfg.Embedding.APIKey != "" && cfg.Embedding.BaseURL == "" {
		warnings = append(warnings, "embedding api_key is set but base_url is empty; history relevance search stays disabled")
	}
	return warnings
}

// ResolveGenerationBaseURL returns the generation API base URL.
// Priority: $NOB_GENERATION_API_BASE_URL env > config value.
func ResolveGenerationBaseURL(cfg *Config) string {
	if url := os.Getenv("NOB_GENERATION_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Generation.BaseURL
	}
	return ""
}

// ResolveGenerationAPIKey returns the generation API key.
// Priority: $NOB_GENERATION_API_KEY env > config value.
func ResolveGenerationAPIKey(cfg *Config) string {
	if key := os.Getenv("NOB_GENERATION_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Generation.APIKey
	}
	return ""
}

// ResolveGenerationModel returns the generation model name.
// Priority: $NOB_GENERATION_MODEL env > config value.
func ResolveGenerationModel(cfg *Config) string {
	if model := os.Getenv("NOB_GENERATION_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Generation.Model
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $NOB_EMBEDDING_API_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("NOB_EMBEDDING_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $NOB_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("NOB_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// EmbeddingEnabled returns true when both base_url and api_key are configured
// for the embedding API.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}
