// Package pexels searches the Pexels stock photo API
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// Defaults for an unset configuration
const (
	DefaultBaseURL = "https://api.pexels.com/v1"
	DefaultSize    = "medium"
	DefaultTimeout = 10 * time.Second
)

// Config holds the API settings
type Config struct {
	BaseURL string
	APIKey  string
	// Size is one of small, medium, large or original
	Size    string
	Timeout time.Duration
}

// Client implements outbound.ImageSearcher
type Client struct {
	baseURL string
	apiKey  string
	size    string
	client  *http.Client
	logger  *zap.Logger
}

var _ outbound.ImageSearcher = (*Client)(nil)

// NewClient creates a new Pexels client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger = logger.Named("pexels")
	if cfg.APIKey == "" {
		logger.Warn("Image API key is empty, image search will fall back to placeholders")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		size:    normalizeSize(cfg.Size),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type searchResponse struct {
	Photos []photo `json:"photos"`
}

type photo struct {
	URL             string            `json:"url"`
	Alt             string            `json:"alt"`
	Photographer    string            `json:"photographer"`
	PhotographerURL string            `json:"photographer_url"`
	Src             map[string]string `json:"src"`
}

// Search returns the first landscape photo matching query, or nil. Without
// an API key it returns nil without calling the provider.
func (c *Client) Search(ctx context.Context, query string) (*outbound.Photo, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	c.logger.Info("Searching for image", zap.String("query", query))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("pexels", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.NewExternalServiceError("pexels", fmt.Errorf("API error %d", resp.StatusCode)).
			WithMetadata("status", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewExternalServiceError("pexels", fmt.Errorf("failed to decode response: %w", err))
	}

	if len(result.Photos) == 0 {
		return nil, nil
	}

	p := result.Photos[0]
	src := p.Src[c.size]
	if src == "" {
		src = p.Src[DefaultSize]
	}
	if src == "" {
		return nil, nil
	}

	return &outbound.Photo{
		URL:             src,
		Alt:             p.Alt,
		Photographer:    p.Photographer,
		PhotographerURL: p.PhotographerURL,
		PageURL:         p.URL,
	}, nil
}

func normalizeSize(size string) string {
	switch size {
	case "small", "medium", "large", "original":
		return size
	default:
		return DefaultSize
	}
}
