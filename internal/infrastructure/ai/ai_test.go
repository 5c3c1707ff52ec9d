package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/ai/langchain"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/ai/ollama"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/ai/openai"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/monitoring"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/memory"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	"github.com/JosephChataignon/hAIckers-team/pkg/healthcheck"
	"github.com/JosephChataignon/hAIckers-team/test/testutils"
)

func TestNewProvider(t *testing.T) {
	logger := zap.NewNop()

	p, err := NewProvider(config.LLMConfig{Provider: ProviderOpenAI, APIKey: "k"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, p)
	assert.Equal(t, openai.DefaultModel, p.Model())

	p, err = NewProvider(config.LLMConfig{
		Provider: ProviderOllama,
		BaseURL:  openai.DefaultBaseURL,
		Model:    openai.DefaultModel,
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &ollama.Client{}, p)
	assert.Equal(t, ollama.DefaultModel, p.Model())

	p, err = NewProvider(config.LLMConfig{Provider: ProviderLangchain, APIKey: "k", Model: "m"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &langchain.Provider{}, p)

	_, err = NewProvider(config.LLMConfig{Provider: "bard"}, logger)
	assert.Error(t, err)
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCacheRepository()
	defer cache.Close()

	next := &testutils.MockCompletionProvider{}
	next.On("Complete", mock.Anything, mock.Anything).
		Return(&outbound.Completion{Content: `Sure! {"calories": 2000, "fiber": 30, "protein": 100}`}, nil)

	cached := NewCachedProvider(next, cache, time.Hour, zap.NewNop())

	goals := outbound.CompletionRequest{
		Messages:    []outbound.Message{{Role: outbound.RoleUser, Content: "age 30"}},
		Temperature: 0.3,
	}
	first, err := cached.Complete(ctx, goals)
	require.NoError(t, err)
	second, err := cached.Complete(ctx, goals)
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
	next.AssertNumberOfCalls(t, "Complete", 1)

	recipes := outbound.CompletionRequest{
		Messages:    []outbound.Message{{Role: outbound.RoleUser, Content: "recipes"}},
		Temperature: 0.7,
	}
	_, _ = cached.Complete(ctx, recipes)
	_, _ = cached.Complete(ctx, recipes)
	next.AssertNumberOfCalls(t, "Complete", 3)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCacheRepository()
	defer cache.Close()

	next := &testutils.MockCompletionProvider{}
	next.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited")).Once()
	next.On("Complete", mock.Anything, mock.Anything).Return(&outbound.Completion{Content: `{"calories": 1800}`}, nil)

	cached := NewCachedProvider(next, cache, time.Hour, zap.NewNop())
	req := outbound.CompletionRequest{Temperature: 0.1}

	_, err := cached.Complete(ctx, req)
	assert.Error(t, err)

	c, err := cached.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, `{"calories": 1800}`, c.Content)
}

func TestCachedProvider_UnparseableAnswersNotCached(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCacheRepository()
	defer cache.Close()

	next := &testutils.MockCompletionProvider{}
	next.On("Complete", mock.Anything, mock.Anything).
		Return(&outbound.Completion{Content: "Calories: 2000 kCal/day"}, nil).Once()
	next.On("Complete", mock.Anything, mock.Anything).
		Return(&outbound.Completion{Content: `{"calories": 2000, "fiber": 30, "protein": 100}`}, nil)

	cached := NewCachedProvider(next, cache, time.Hour, zap.NewNop())
	req := outbound.CompletionRequest{
		Messages:    []outbound.Message{{Role: outbound.RoleUser, Content: "age 41"}},
		Temperature: 0.3,
	}

	first, err := cached.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Calories: 2000 kCal/day", first.Content)

	second, err := cached.Complete(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, second.Content, `"calories": 2000`)

	third, err := cached.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, second.Content, third.Content)
	next.AssertNumberOfCalls(t, "Complete", 2)
}

func TestInstrumentedProvider(t *testing.T) {
	metrics := monitoring.NewMetricsCollector(zap.NewNop())
	tracing, err := monitoring.NewTracingProvider(monitoring.TracingConfig{}, zap.NewNop())
	require.NoError(t, err)

	next := &testutils.MockCompletionProvider{}
	next.On("Complete", mock.Anything, mock.Anything).
		Return(&outbound.Completion{Content: "hi", PromptTokens: 5, CompletionTokens: 2}, nil).Once()
	next.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	p := NewInstrumentedProvider(next, metrics, tracing, zap.NewNop())
	assert.Equal(t, "mock", p.Name())
	assert.Equal(t, next, p.Unwrap())

	c, err := p.Complete(context.Background(), outbound.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hi", c.Content)

	_, err = p.Complete(context.Background(), outbound.CompletionRequest{})
	assert.EqualError(t, err, "down")
}

func TestHealthChecker(t *testing.T) {
	t.Run("hosted without key degrades", func(t *testing.T) {
		hc := NewHealthChecker(&testutils.MockCompletionProvider{}, false, zap.NewNop())
		check := hc.Check(context.Background())
		assert.Equal(t, healthcheck.StatusDegraded, check.Status)
		assert.Equal(t, "API key not configured", check.Message)
	})

	t.Run("hosted with key is healthy", func(t *testing.T) {
		hc := NewHealthChecker(&testutils.MockCompletionProvider{}, true, zap.NewNop())
		assert.Equal(t, healthcheck.StatusHealthy, hc.Check(context.Background()).Status)
	})

	t.Run("local server is pinged through decorators", func(t *testing.T) {
		up := true
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !up {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"models":[]}`))
		}))
		defer server.Close()

		cache := memory.NewCacheRepository()
		defer cache.Close()

		client := ollama.NewClient(ollama.Config{BaseURL: server.URL}, zap.NewNop())
		hc := NewHealthChecker(NewCachedProvider(client, cache, time.Hour, zap.NewNop()), false, zap.NewNop())

		assert.Equal(t, healthcheck.StatusHealthy, hc.Check(context.Background()).Status)

		up = false
		assert.Equal(t, healthcheck.StatusDegraded, hc.Check(context.Background()).Status)
	})
}
