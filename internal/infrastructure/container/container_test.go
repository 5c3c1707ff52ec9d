package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/memory"
)

func TestNewImageLookup_StaticTableWithoutAPIKey(t *testing.T) {
	cache := memory.NewCacheRepository()
	defer cache.Close()

	cfg := &config.Config{}
	cfg.Images.BaseURL = "http://127.0.0.1:1"

	lookup := NewImageLookup(cfg, cache, zap.NewNop())
	require.NotNil(t, lookup)

	photo, err := lookup.ImageFor(context.Background(), "Pasta Carbonara")
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.Equal(t, "Engin Akyurt", photo.Photographer)
	assert.Contains(t, photo.URL, "1279330")

	photo, err = lookup.ImageFor(context.Background(), "Unknown Dish XYZ")
	assert.NoError(t, err)
	assert.Nil(t, photo)
}
