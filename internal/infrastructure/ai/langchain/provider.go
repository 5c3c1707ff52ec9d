// Package langchain adapts a langchaingo model to the completion port, so any
// backend langchaingo supports can serve the meal advisor.
package langchain

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// Config selects the OpenAI-compatible endpoint used by langchaingo
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Provider implements outbound.CompletionProvider on top of llms.Model
type Provider struct {
	llm    llms.Model
	model  string
	logger *zap.Logger
}

var _ outbound.CompletionProvider = (*Provider)(nil)

// New builds an OpenAI-compatible langchaingo model from cfg
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain model: %w", err)
	}

	return NewWithModel(llm, cfg.Model, logger), nil
}

// NewWithModel wraps an existing langchaingo model
func NewWithModel(llm llms.Model, model string, logger *zap.Logger) *Provider {
	return &Provider{
		llm:    llm,
		model:  model,
		logger: logger.Named("langchain"),
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "langchain"
}

// Model returns the configured model
func (p *Provider) Model() string {
	return p.model
}

// Complete sends the conversation through GenerateContent
func (p *Provider) Complete(ctx context.Context, in outbound.CompletionRequest) (*outbound.Completion, error) {
	messages := make([]llms.MessageContent, 0, len(in.Messages))
	for _, m := range in.Messages {
		messages = append(messages, llms.TextParts(messageType(m.Role), m.Content))
	}

	resp, err := p.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(in.Temperature),
		llms.WithMaxTokens(in.MaxTokens),
	)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(p.Name(), err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, apperrors.NewExternalServiceError(p.Name(), fmt.Errorf("no response choices returned"))
	}

	choice := resp.Choices[0]
	completion := &outbound.Completion{
		Content:      choice.Content,
		Model:        p.model,
		FinishReason: choice.StopReason,
	}
	completion.PromptTokens = intInfo(choice.GenerationInfo, "PromptTokens")
	completion.CompletionTokens = intInfo(choice.GenerationInfo, "CompletionTokens")

	p.logger.Debug("Langchain completion successful",
		zap.String("stop_reason", choice.StopReason),
		zap.Int("completion_tokens", completion.CompletionTokens),
	)
	return completion, nil
}

func messageType(role string) schema.ChatMessageType {
	switch role {
	case outbound.RoleSystem:
		return schema.ChatMessageTypeSystem
	case outbound.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
