// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
)

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
var ErrCacheMiss = errors.New("cache: key not found")

// ProfileRepository persists registered profiles.
// Create reports a taken username with CodeUsernameAlreadyExists and
// FindByUsername reports an unknown one with CodeProfileNotFound.
type ProfileRepository interface {
	Create(ctx context.Context, p *profile.Profile) error
	FindByUsername(ctx context.Context, username string) (*profile.Profile, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// Message is one chat turn sent to a completion provider
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest is a provider-neutral chat completion call
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completion is the first choice returned by a provider
type Completion struct {
	Content          string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// CompletionProvider is a large-language-model chat endpoint
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Name() string
	Model() string
}

// Photo is one stock image with its attribution
type Photo struct {
	URL             string `json:"url"`
	Alt             string `json:"alt"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
	PageURL         string `json:"page_url,omitempty"`
}

// ImageSearcher queries a stock photo provider. A search with no result
// returns nil and no error.
type ImageSearcher interface {
	Search(ctx context.Context, query string) (*Photo, error)
}
