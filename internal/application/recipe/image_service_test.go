package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	"github.com/JosephChataignon/hAIckers-team/test/testutils"
)

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Easy Homemade Lasagna!", "lasagna"},
		{"The BEST 20-minute Chili Recipe", "the minute chili"},
		{"  Quick   Thai  Curry  ", "thai curry"},
		{"Crème Brûlée", "crme brle"},
		{"Recipe", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanQuery(tt.in))
		})
	}
}

func TestImageFor_StaticTableSkipsNetwork(t *testing.T) {
	searcher := &testutils.MockImageSearcher{}
	svc := NewImageService(searcher, nil, 0, zap.NewNop())

	for _, name := range []string{"Pasta Carbonara", "  grilled CHICKEN salad ", "AVOCADO TOAST"} {
		photo, err := svc.ImageFor(context.Background(), name)
		require.NoError(t, err)
		require.NotNil(t, photo, name)
		assert.Contains(t, photo.URL, "images.pexels.com")
	}

	photo, _ := svc.ImageFor(context.Background(), "Pasta Carbonara")
	assert.Equal(t, "Engin Akyurt", photo.Photographer)

	searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestImageFor_SearchesCleanedQuery(t *testing.T) {
	searcher := &testutils.MockImageSearcher{}
	searcher.On("Search", mock.Anything, "lentil soup").
		Return(&outbound.Photo{URL: "https://img/1.jpg", Photographer: "Jo"}, nil)

	svc := NewImageService(searcher, nil, 0, zap.NewNop())
	photo, err := svc.ImageFor(context.Background(), "Easy Lentil Soup")

	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.Equal(t, "https://img/1.jpg", photo.URL)
	assert.Equal(t, "Easy Lentil Soup", photo.Alt)
	searcher.AssertNumberOfCalls(t, "Search", 1)
}

func TestImageFor_FallsBackToRawName(t *testing.T) {
	searcher := &testutils.MockImageSearcher{}
	searcher.On("Search", mock.Anything, "lentil soup").Return(nil, nil).Once()
	searcher.On("Search", mock.Anything, "Easy Lentil Soup").
		Return(&outbound.Photo{URL: "https://img/2.jpg"}, nil).Once()

	svc := NewImageService(searcher, nil, 0, zap.NewNop())
	photo, err := svc.ImageFor(context.Background(), "Easy Lentil Soup")

	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.Equal(t, "https://img/2.jpg", photo.URL)
	searcher.AssertExpectations(t)
}

func TestImageFor_MissAndErrorReturnNil(t *testing.T) {
	t.Run("miss", func(t *testing.T) {
		searcher := &testutils.MockImageSearcher{}
		searcher.On("Search", mock.Anything, mock.Anything).Return(nil, nil)

		svc := NewImageService(searcher, nil, 0, zap.NewNop())
		photo, err := svc.ImageFor(context.Background(), "Mystery Stew")

		assert.NoError(t, err)
		assert.Nil(t, photo)
		searcher.AssertNumberOfCalls(t, "Search", 2)
	})

	t.Run("error", func(t *testing.T) {
		searcher := &testutils.MockImageSearcher{}
		searcher.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("status 401"))

		svc := NewImageService(searcher, nil, 0, zap.NewNop())
		photo, err := svc.ImageFor(context.Background(), "Mystery Stew")

		assert.NoError(t, err)
		assert.Nil(t, photo)
		searcher.AssertNumberOfCalls(t, "Search", 1)
	})
}

func TestImageFor_UsesCache(t *testing.T) {
	cached := outbound.Photo{URL: "https://img/cached.jpg", Alt: "Stew"}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	t.Run("hit", func(t *testing.T) {
		searcher := &testutils.MockImageSearcher{}
		cache := &testutils.MockCacheRepository{}
		cache.On("Get", mock.Anything, "image:beef stew").Return(data, nil)

		svc := NewImageService(searcher, cache, time.Hour, zap.NewNop())
		photo, err := svc.ImageFor(context.Background(), "Beef Stew")

		require.NoError(t, err)
		assert.Equal(t, &cached, photo)
		searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("miss stores result", func(t *testing.T) {
		searcher := &testutils.MockImageSearcher{}
		searcher.On("Search", mock.Anything, "beef stew").Return(&cached, nil)
		cache := &testutils.MockCacheRepository{}
		cache.On("Get", mock.Anything, "image:beef stew").Return(nil, outbound.ErrCacheMiss)
		cache.On("Set", mock.Anything, "image:beef stew", data, time.Hour).Return(nil)

		svc := NewImageService(searcher, cache, time.Hour, zap.NewNop())
		_, err := svc.ImageFor(context.Background(), "Beef Stew")

		require.NoError(t, err)
		cache.AssertExpectations(t)
	})
}
