package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read from the environment once at process start and passed by
// value; nothing mutates it afterwards.
type Config struct {
	Port string

	// Inference backend
	OllamaURL              string
	DefaultModel           string
	AllowedModels          []string // empty = any model the backend knows
	ModelContextTokens     int
	MaxConcurrentInference int
	InferenceTimeout       time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Summarization
	DefaultLanguage string

	// HTTP
	FrontendOrigins []string // CORS allow-list; empty = any origin

	// Temp storage for uploads
	TmpDir string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8080"),

		OllamaURL:              envOr("OLLAMA_URL", "http://localhost:11434"),
		DefaultModel:           envOr("DEFAULT_MODEL", "llama3.2:3b"),
		AllowedModels:          envList("ALLOWED_MODELS"),
		ModelContextTokens:     envInt("MODEL_CONTEXT_TOKENS", 4096),
		MaxConcurrentInference: envInt("MAX_CONCURRENT_INFERENCE", 2),
		InferenceTimeout:       envDuration("INFERENCE_TIMEOUT", 120*time.Second),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 30*1024*1024),

		DefaultLanguage: envOr("DEFAULT_LANGUAGE", "es"),

		FrontendOrigins: envList("FRONTEND_ORIGINS"),

		TmpDir: envOr("TMP_DIR", os.TempDir()),
	}

	if cfg.ModelContextTokens <= 0 {
		cfg.ModelContextTokens = 4096
	}
	if cfg.MaxConcurrentInference <= 0 {
		cfg.MaxConcurrentInference = 2
	}
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = 120 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 30 * 1024 * 1024
	}

	return cfg
}

func (c Config) Validate() error {
	if c.OllamaURL == "" {
		return fmt.Errorf("OLLAMA_URL is required")
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("DEFAULT_MODEL is required")
	}
	switch c.DefaultLanguage {
	case "es", "en":
	default:
		return fmt.Errorf("DEFAULT_LANGUAGE must be \"es\" or \"en\", got %q", c.DefaultLanguage)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
