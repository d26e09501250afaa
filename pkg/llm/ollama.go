package llm

import "strings"

const (
	defaultOllamaURL   = "http://localhost:11434/v1"
	defaultOllamaModel = "llama3.1"
)

// NewOllamaProvider speaks the OpenAI wire format to a local Ollama server.
// No API key is needed; one is sent only when configured.
func NewOllamaProvider(cfg Config) *OpenAIProvider {
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = defaultOllamaURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultOllamaModel
	}
	p := NewOpenAIProvider(cfg)
	p.name = "ollama"
	return p
}
