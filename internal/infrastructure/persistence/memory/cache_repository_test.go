package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

func newTestRepo(t *testing.T) (*CacheRepository, *time.Time) {
	t.Helper()
	repo := NewCacheRepository()
	t.Cleanup(repo.Close)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	return repo, &now
}

func TestCacheRepository_SetGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "session:abc", []byte("state"), time.Minute))

	value, err := repo.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), value)

	// returned slices are copies
	value[0] = 'X'
	again, _ := repo.Get(ctx, "session:abc")
	assert.Equal(t, []byte("state"), again)
}

func TestCacheRepository_Miss(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestCacheRepository_Expiry(t *testing.T) {
	repo, now := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "image:soup", []byte("x"), time.Minute))
	exists, _ := repo.Exists(ctx, "image:soup")
	assert.True(t, exists)

	*now = now.Add(2 * time.Minute)

	_, err := repo.Get(ctx, "image:soup")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	exists, _ = repo.Exists(ctx, "image:soup")
	assert.False(t, exists)
	assert.Equal(t, 0, count(t, repo, ""))
}

func TestCacheRepository_DefaultTTL(t *testing.T) {
	repo, now := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))
	*now = now.Add(DefaultTTL - time.Second)

	_, err := repo.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestCacheRepository_DeleteAndCount(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_ = repo.Set(ctx, "session:a", []byte("1"), time.Hour)
	_ = repo.Set(ctx, "session:b", []byte("2"), time.Hour)
	_ = repo.Set(ctx, "image:c", []byte("3"), time.Hour)

	assert.Equal(t, 2, count(t, repo, "session:"))

	require.NoError(t, repo.Delete(ctx, "session:a"))
	assert.Equal(t, 1, count(t, repo, "session:"))
	assert.NoError(t, repo.Ping(ctx))
}

func TestCacheRepository_Sweep(t *testing.T) {
	repo, now := newTestRepo(t)
	ctx := context.Background()

	_ = repo.Set(ctx, "old", []byte("1"), time.Second)
	_ = repo.Set(ctx, "new", []byte("2"), time.Hour)
	*now = now.Add(time.Minute)

	repo.sweep()

	repo.mutex.RLock()
	defer repo.mutex.RUnlock()
	assert.Len(t, repo.data, 1)
}

func TestCacheRepository_Concurrent(t *testing.T) {
	repo := NewCacheRepository()
	defer repo.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"a", "b", "c"}[i%3]
			_ = repo.Set(ctx, key, []byte{byte(i)}, time.Millisecond)
			_, _ = repo.Get(ctx, key)
			_, _ = repo.Exists(ctx, key)
		}(i)
	}
	wg.Wait()
}

func count(t *testing.T, repo *CacheRepository, prefix string) int {
	t.Helper()
	n, err := repo.Count(context.Background(), prefix)
	require.NoError(t, err)
	return n
}
