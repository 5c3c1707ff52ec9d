// Package ai selects and decorates the configured completion provider
package ai

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/ai/langchain"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/ai/ollama"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/ai/openai"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// Provider names accepted in llm.provider
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderLangchain = "langchain"
)

// NewProvider builds the completion provider named by cfg.Provider
func NewProvider(cfg config.LLMConfig, logger *zap.Logger) (outbound.CompletionProvider, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return openai.NewClient(openai.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil

	case ProviderOllama:
		// The hosted defaults make no sense against a local server
		baseURL, model := cfg.BaseURL, cfg.Model
		if baseURL == openai.DefaultBaseURL {
			baseURL = ""
		}
		if model == openai.DefaultModel {
			model = ""
		}
		return ollama.NewClient(ollama.Config{
			BaseURL: baseURL,
			Model:   model,
			Timeout: cfg.Timeout,
		}, logger), nil

	case ProviderLangchain:
		return langchain.New(langchain.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
