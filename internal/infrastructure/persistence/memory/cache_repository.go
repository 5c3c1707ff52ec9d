// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// DefaultTTL applies when Set is called with a zero TTL
const DefaultTTL = 24 * time.Hour

const cleanupInterval = 5 * time.Minute

// CacheItem represents a cached item
type CacheItem struct {
	Value     []byte
	ExpiresAt time.Time
}

func (i CacheItem) expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// CacheRepository implements in-memory cache repository
type CacheRepository struct {
	data  map[string]CacheItem
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new in-memory cache repository and starts
// its expiry sweep. Call Close to stop the sweep.
func NewCacheRepository() *CacheRepository {
	repo := &CacheRepository{
		data: make(map[string]CacheItem),
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go repo.cleanup()

	return repo
}

// Get retrieves a value from cache
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mutex.RLock()
	item, exists := r.data[key]
	r.mutex.RUnlock()

	if !exists {
		return nil, outbound.ErrCacheMiss
	}

	if item.expired(r.now()) {
		r.evict(key)
		return nil, outbound.ErrCacheMiss
	}

	value := make([]byte, len(item.Value))
	copy(value, item.Value)
	return value, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data[key] = CacheItem{
		Value:     stored,
		ExpiresAt: r.now().Add(ttl),
	}

	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, key)
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.mutex.RLock()
	item, exists := r.data[key]
	r.mutex.RUnlock()

	if !exists {
		return false, nil
	}

	if item.expired(r.now()) {
		r.evict(key)
		return false, nil
	}

	return true, nil
}

// Ping always succeeds
func (r *CacheRepository) Ping(ctx context.Context) error {
	return nil
}

// Count returns the number of live keys with the given prefix
func (r *CacheRepository) Count(_ context.Context, prefix string) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	now := r.now()
	n := 0
	for key, item := range r.data {
		if strings.HasPrefix(key, prefix) && !item.expired(now) {
			n++
		}
	}
	return n, nil
}

// Close stops the expiry sweep
func (r *CacheRepository) Close() {
	r.once.Do(func() { close(r.stop) })
}

// evict removes key only if it is still expired, so a concurrent Set wins
func (r *CacheRepository) evict(key string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if item, ok := r.data[key]; ok && item.expired(r.now()) {
		delete(r.data, key)
	}
}

// cleanup removes expired items periodically
func (r *CacheRepository) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *CacheRepository) sweep() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	for key, item := range r.data {
		if item.expired(now) {
			delete(r.data, key)
		}
	}
}
