package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/shared"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// DefaultCacheMaxTemperature admits nutrition goal requests and leaves the
// varied recipe recommendations uncached
const DefaultCacheMaxTemperature = 0.3

// CachedProvider serves repeated low-temperature requests from the cache
type CachedProvider struct {
	next           outbound.CompletionProvider
	cache          outbound.CacheRepository
	ttl            time.Duration
	maxTemperature float64
	logger         *zap.Logger
}

var _ outbound.CompletionProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps next with a cache lookup
func NewCachedProvider(next outbound.CompletionProvider, cache outbound.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		next:           next,
		cache:          cache,
		ttl:            ttl,
		maxTemperature: DefaultCacheMaxTemperature,
		logger:         logger.Named("llm-cache"),
	}
}

func (c *CachedProvider) Name() string  { return c.next.Name() }
func (c *CachedProvider) Model() string { return c.next.Model() }

// Complete returns a cached completion when one exists for the same request
func (c *CachedProvider) Complete(ctx context.Context, req outbound.CompletionRequest) (*outbound.Completion, error) {
	if req.Temperature > c.maxTemperature {
		return c.next.Complete(ctx, req)
	}

	key := c.cacheKey(req)
	if data, err := c.cache.Get(ctx, key); err == nil {
		var cached outbound.Completion
		if err := json.Unmarshal(data, &cached); err == nil {
			c.logger.Debug("Completion cache hit", zap.String("key", key))
			return &cached, nil
		}
	} else if !errors.Is(err, outbound.ErrCacheMiss) {
		c.logger.Warn("Completion cache read failed", zap.Error(err))
	}

	completion, err := c.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if !cacheable(completion) {
		c.logger.Debug("Completion without a JSON object left uncached", zap.String("key", key))
		return completion, nil
	}
	if data, err := json.Marshal(completion); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("Completion cache write failed", zap.Error(err))
		}
	}

	return completion, nil
}

func (c *CachedProvider) cacheKey(req outbound.CompletionRequest) string {
	h := sha256.New()
	h.Write([]byte(c.next.Name()))
	h.Write([]byte{0})
	h.Write([]byte(c.next.Model()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(req.Temperature, 'f', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.MaxTokens)))
	for _, m := range req.Messages {
		h.Write([]byte{0})
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
	}
	return "llm:" + hex.EncodeToString(h.Sum(nil))
}

// Unwrap returns the decorated provider
func (c *CachedProvider) Unwrap() outbound.CompletionProvider { return c.next }

// cacheable reports whether the answer carries a parseable JSON object, so a
// malformed answer is asked again next time instead of being replayed
func cacheable(completion *outbound.Completion) bool {
	payload, err := shared.ExtractJSONObject(completion.Content)
	return err == nil && json.Valid([]byte(payload))
}
