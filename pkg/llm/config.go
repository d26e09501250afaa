package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noonaei/appsFlyer-hackathon/pkg/config"
)

// ErrNotConfigured is returned by NewProvider when no credential is available
// for a hosted backend. Callers treat it as "generation disabled".
var ErrNotConfigured = errors.New("llm: provider not configured")

type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIURL    string
	MaxTokens int
}

func LoadConfig() Config {
	return Config{
		Provider:  config.GetEnv("LLM_PROVIDER", "openai"),
		Model:     config.GetEnv("LLM_MODEL", config.GetEnv("OPENAI_MODEL", "gpt-4o-mini")),
		APIKey:    config.GetEnv("LLM_API_KEY", config.GetEnv("OPENAI_API_KEY", "")),
		APIURL:    config.GetEnv("LLM_API_URL", ""),
		MaxTokens: config.GetEnvInt("LLM_MAX_TOKENS", 0),
	}
}

func NewProvider(cfg Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider != "ollama" && cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	switch provider {
	case "openai", "":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
