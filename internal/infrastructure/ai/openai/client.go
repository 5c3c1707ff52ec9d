// Package openai provides a chat completion client for OpenAI-compatible
// endpoints (OpenAI, Groq, vLLM, Ollama's /v1 surface).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// Defaults for an unset configuration
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
	DefaultTimeout = 30 * time.Second
)

// maxErrorBody bounds how much of a failed response is logged
const maxErrorBody = 512

// Config holds the endpoint settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements outbound.CompletionProvider over /chat/completions
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

var _ outbound.CompletionProvider = (*Client)(nil)

// NewClient creates a new OpenAI-compatible client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger = logger.Named("openai")
	if cfg.APIKey == "" {
		logger.Warn("Completion API key is empty, requests will likely be rejected")
	}
	logger.Info("OpenAI-compatible client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
	)

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// ChatCompletionRequest is the request body
type ChatCompletionRequest struct {
	Model       string             `json:"model"`
	Messages    []outbound.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

// ChatCompletionResponse is the subset of the response body we read
type ChatCompletionResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Message      outbound.Message `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// Model returns the configured model
func (c *Client) Model() string {
	return c.model
}

// Complete posts the conversation and returns the first choice
func (c *Client) Complete(ctx context.Context, in outbound.CompletionRequest) (*outbound.Completion, error) {
	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    in.Messages,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("API request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Completion API returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), maxErrorBody)),
		)
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("API error %d", resp.StatusCode)).
			WithMetadata("status", resp.StatusCode)
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if len(chatResp.Choices) == 0 {
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("no response choices returned"))
	}

	c.logger.Info("Completion API call successful",
		zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens),
	)

	model := chatResp.Model
	if model == "" {
		model = c.model
	}

	return &outbound.Completion{
		Content:          chatResp.Choices[0].Message.Content,
		Model:            model,
		FinishReason:     chatResp.Choices[0].FinishReason,
		PromptTokens:     chatResp.Usage.PromptTokens,
		CompletionTokens: chatResp.Usage.CompletionTokens,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
