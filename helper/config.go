package helper

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ModelConfig configures one language model backend.
type ModelConfig struct {
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig selects the answering provider and its fallback.
type LLMConfig struct {
	Provider          string      `yaml:"provider"`
	EnableFallback    bool        `yaml:"enable_fallback"`
	FallbackProvider  string      `yaml:"fallback_provider"`
	MaxResponseTokens int         `yaml:"max_response_tokens"`
	Temperature       float64     `yaml:"temperature"`
	MaxRetries        int         `yaml:"max_retries"`
	Local             ModelConfig `yaml:"local"`
	OpenAI            ModelConfig `yaml:"openai"`
	Anthropic         ModelConfig `yaml:"anthropic"`
	Google            ModelConfig `yaml:"google"`
}

// EmbeddingConfig configures the sentence embedding model.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	OnnxFile  string `yaml:"onnx_file"`
	Dimension int    `yaml:"dimension"`
}

// RetrievalConfig configures query time behaviour.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k"`
	CacheTTLSecs int `yaml:"cache_ttl_secs"`
}

// Config is the application configuration. Values from the YAML file are
// overridden by environment variables.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LLM: LLMConfig{
			Provider:          "local",
			EnableFallback:    true,
			FallbackProvider:  "local",
			MaxResponseTokens: 1000,
			Temperature:       0.1,
			MaxRetries:        2,
			Local: ModelConfig{
				Model:       "llama3.1:8b",
				BaseURL:     "http://localhost:11434",
				TimeoutSecs: 120,
			},
			OpenAI:    ModelConfig{Model: "gpt-4o-mini", TimeoutSecs: 60},
			Anthropic: ModelConfig{Model: "claude-3-5-haiku-latest", TimeoutSecs: 60},
			Google:    ModelConfig{Model: "gemini-1.5-flash", TimeoutSecs: 60},
		},
		Embedding: EmbeddingConfig{
			Model:     "sentence-transformers/all-MiniLM-L6-v2",
			OnnxFile:  "onnx/model.onnx",
			Dimension: 384,
		},
		Retrieval: RetrievalConfig{
			TopK:         5,
			CacheTTLSecs: 300,
		},
	}
}

// LoadConfig reads the YAML file at path (if it exists) and applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, NewError("read config", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, NewError("parse config", err)
			}
		}
	}

	_ = godotenv.Load()
	applyEnv(cfg)

	return cfg, nil
}

// SaveConfig writes cfg to path, creating directories as needed.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewError("create config directory", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return NewError("marshal config", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Level maps the configured log level to a slog level.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyEnv(cfg *Config) {
	envString("LOG_LEVEL", &cfg.LogLevel)

	envString("MODEL_PROVIDER", &cfg.LLM.Provider)
	envBool("ENABLE_FALLBACK", &cfg.LLM.EnableFallback)
	envString("FALLBACK_PROVIDER", &cfg.LLM.FallbackProvider)
	envInt("MAX_RESPONSE_LENGTH", &cfg.LLM.MaxResponseTokens)
	envFloat("TEMPERATURE", &cfg.LLM.Temperature)
	envInt("LLM_MAX_RETRIES", &cfg.LLM.MaxRetries)

	envString("LOCAL_MODEL_NAME", &cfg.LLM.Local.Model)
	envString("OLLAMA_BASE_URL", &cfg.LLM.Local.BaseURL)
	envString("OPENAI_API_KEY", &cfg.LLM.OpenAI.APIKey)
	envString("OPENAI_MODEL", &cfg.LLM.OpenAI.Model)
	envString("OPENAI_BASE_URL", &cfg.LLM.OpenAI.BaseURL)
	envString("ANTHROPIC_API_KEY", &cfg.LLM.Anthropic.APIKey)
	envString("ANTHROPIC_MODEL", &cfg.LLM.Anthropic.Model)
	envString("GOOGLE_API_KEY", &cfg.LLM.Google.APIKey)
	envString("GOOGLE_MODEL", &cfg.LLM.Google.Model)

	envString("EMBEDDING_MODEL", &cfg.Embedding.Model)
	envInt("EMBEDDING_DIM", &cfg.Embedding.Dimension)

	envInt("TOP_K", &cfg.Retrieval.TopK)
	envInt("CACHE_TTL", &cfg.Retrieval.CacheTTLSecs)
}

func envString(key string, target *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func envInt(key string, target *int) {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func envFloat(key string, target *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
