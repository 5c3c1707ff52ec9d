// Package ollama provides Ollama integration for local AI inference
package ollama

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2:3b"
	DefaultTimeout = 30 * time.Second
)

// Config holds the server settings
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements outbound.CompletionProvider over Ollama's /api/chat
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

var _ outbound.CompletionProvider = (*Client)(nil)

// NewClient creates a new Ollama client
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

	logger.Info("Ollama client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("ollama-client"),
	}
}

// Ollama API structures
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []outbound.Message     `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ChatResponse struct {
	Model           string           `json:"model"`
	Message         outbound.Message `json:"message"`
	Done            bool             `json:"done"`
	DoneReason      string           `json:"done_reason,omitempty"`
	PromptEvalCount int              `json:"prompt_eval_count,omitempty"`
	EvalCount       int              `json:"eval_count,omitempty"`
	EvalDuration    int64            `json:"eval_duration,omitempty"`
}

// Name returns the provider name
func (c *Client) Name() string {
	return "ollama"
}

// Model returns the configured model
func (c *Client) Model() string {
	return c.model
}

// HealthCheck verifies the Ollama service is available
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := c.baseURL + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status %d", resp.StatusCode)
	}

	c.logger.Debug("Ollama health check passed")
	return nil
}

// Complete runs a non-streaming chat completion
func (c *Client) Complete(ctx context.Context, in outbound.CompletionRequest) (*outbound.Completion, error) {
	endpoint := c.baseURL + "/api/chat"

	reqBody := ChatRequest{
		Model:    c.model,
		Messages: in.Messages,
		Stream:   false,
		Options: map[string]interface{}{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))).
			WithMetadata("status", resp.StatusCode)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if !chatResp.Done {
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("incomplete response from Ollama"))
	}

	c.logger.Debug("Ollama chat completion successful",
		zap.String("model", chatResp.Model),
		zap.Int64("eval_duration", chatResp.EvalDuration),
		zap.Int("eval_count", chatResp.EvalCount))

	return &outbound.Completion{
		Content:          chatResp.Message.Content,
		Model:            chatResp.Model,
		FinishReason:     chatResp.DoneReason,
		PromptTokens:     chatResp.PromptEvalCount,
		CompletionTokens: chatResp.EvalCount,
	}, nil
}
