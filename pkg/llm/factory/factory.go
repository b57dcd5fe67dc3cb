package factory

import (
	"fmt"

	"nous-core/pkg/llm"
	"nous-core/pkg/llm/llamacpp"
	"nous-core/pkg/llm/ollama"
)

type Settings struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "llamacpp", "":
		return llamacpp.NewProvider(s.BaseURL, s.Model, s.MaxTokens, s.Temperature), nil
	case "ollama":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, s.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
