package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/monitoring"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

const backend = "redis"

// CacheRepository implements outbound.CacheRepository on Redis
type CacheRepository struct {
	client  redis.UniversalClient
	prefix  string
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a repository that namespaces every key with prefix.
// metrics may be nil.
func NewCacheRepository(client redis.UniversalClient, prefix string, metrics *monitoring.MetricsCollector, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{
		client:  client,
		prefix:  prefix,
		metrics: metrics,
		logger:  logger.Named("redis-cache"),
	}
}

// Get retrieves a value from cache
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.record("get", nil)
		return nil, outbound.ErrCacheMiss
	}
	r.record("get", err)
	if err != nil {
		r.logger.Debug("Cache get failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.client.Set(ctx, r.prefix+key, value, ttl).Err()
	r.record("set", err)
	if err != nil {
		r.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Delete removes a value from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, r.prefix+key).Err()
	r.record("delete", err)
	if err != nil {
		r.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Exists checks whether key is present
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	r.record("exists", err)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks the connection
func (r *CacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Count returns the number of keys under the repository prefix plus
// keyPrefix, scanning in batches
func (r *CacheRepository) Count(ctx context.Context, keyPrefix string) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func (r *CacheRepository) record(op string, err error) {
	if r.metrics != nil {
		r.metrics.CacheOperation(op, backend, err)
	}
}
