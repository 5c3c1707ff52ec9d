// Package recipe provides the application layer for recipe presentation
package recipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// DefaultImageCacheTTL applies when the configured TTL is zero
const DefaultImageCacheTTL = 24 * time.Hour

const imageCacheKeyPrefix = "image:"

// staticImages are served without calling the image provider
var staticImages = map[string]outbound.Photo{
	"pasta carbonara": {
		URL:             "https://images.pexels.com/photos/1279330/pexels-photo-1279330.jpeg",
		Alt:             "Pasta Carbonara",
		Photographer:    "Engin Akyurt",
		PhotographerURL: "https://www.pexels.com/@enginakyurt",
		PageURL:         "https://www.pexels.com/photo/pasta-on-white-ceramic-plate-1279330/",
	},
	"grilled chicken salad": {
		URL:             "https://images.pexels.com/photos/1640777/pexels-photo-1640777.jpeg",
		Alt:             "Grilled Chicken Salad",
		Photographer:    "Ella Olsson",
		PhotographerURL: "https://www.pexels.com/@ella-olsson-572949",
		PageURL:         "https://www.pexels.com/photo/vegetable-salad-on-white-ceramic-plate-1640777/",
	},
	"avocado toast": {
		URL:             "https://images.pexels.com/photos/1640772/pexels-photo-1640772.jpeg",
		Alt:             "Avocado Toast",
		Photographer:    "Ella Olsson",
		PhotographerURL: "https://www.pexels.com/@ella-olsson-572949",
		PageURL:         "https://www.pexels.com/photo/avocado-toast-on-plate-1640772/",
	},
}

var (
	nonLetters  = regexp.MustCompile(`[^a-zA-Z ]`)
	fillerWords = regexp.MustCompile(`\b(recipe|easy|quick|homemade|best|delicious)\b`)
)

// CleanQuery lowercases the name, keeps letters and spaces, removes filler
// words and collapses whitespace.
func CleanQuery(name string) string {
	cleaned := strings.ToLower(name)
	cleaned = nonLetters.ReplaceAllString(cleaned, "")
	cleaned = fillerWords.ReplaceAllString(cleaned, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// ImageService finds a photo for a recipe title
type ImageService struct {
	searcher outbound.ImageSearcher
	cache    outbound.CacheRepository
	ttl      time.Duration
	logger   *zap.Logger
}

var _ inbound.ImageLookup = (*ImageService)(nil)

// NewImageService creates a new image service. cache may be nil.
func NewImageService(
	searcher outbound.ImageSearcher,
	cache outbound.CacheRepository,
	ttl time.Duration,
	logger *zap.Logger,
) *ImageService {
	if ttl <= 0 {
		ttl = DefaultImageCacheTTL
	}
	return &ImageService{
		searcher: searcher,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.Named("image-service"),
	}
}

// ImageFor returns a photo for recipeName, or nil when none was found. Lookup
// failures are logged and reported as nil so the caller shows a placeholder.
func (s *ImageService) ImageFor(ctx context.Context, recipeName string) (*outbound.Photo, error) {
	normalized := strings.ToLower(strings.TrimSpace(recipeName))
	if normalized == "" {
		return nil, nil
	}

	if photo, ok := staticImages[normalized]; ok {
		return &photo, nil
	}

	if photo := s.cached(ctx, normalized); photo != nil {
		return photo, nil
	}

	photo := s.search(ctx, recipeName)
	if photo == nil {
		return nil, nil
	}
	if photo.Alt == "" {
		photo.Alt = recipeName
	}

	s.store(ctx, normalized, photo)
	return photo, nil
}

// search tries the cleaned query, then the raw name once
func (s *ImageService) search(ctx context.Context, recipeName string) *outbound.Photo {
	queries := []string{CleanQuery(recipeName)}
	if raw := strings.TrimSpace(recipeName); raw != queries[0] {
		queries = append(queries, raw)
	}

	for _, query := range queries {
		if query == "" {
			continue
		}
		s.logger.Debug("Searching image", zap.String("query", query))

		photo, err := s.searcher.Search(ctx, query)
		if err != nil {
			s.logger.Warn("Image search failed", zap.String("query", query), zap.Error(err))
			return nil
		}
		if photo != nil {
			return photo
		}
	}

	s.logger.Info("No image found", zap.String("recipe", recipeName))
	return nil
}

func (s *ImageService) cached(ctx context.Context, key string) *outbound.Photo {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, imageCacheKeyPrefix+key)
	if err != nil {
		if !stderrors.Is(err, outbound.ErrCacheMiss) {
			s.logger.Warn("Image cache read failed", zap.Error(err))
		}
		return nil
	}

	var photo outbound.Photo
	if err := json.Unmarshal(data, &photo); err != nil {
		s.logger.Warn("Discarding corrupt image cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &photo
}

func (s *ImageService) store(ctx context.Context, key string, photo *outbound.Photo) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(photo)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, imageCacheKeyPrefix+key, data, s.ttl); err != nil {
		s.logger.Warn("Image cache write failed", zap.Error(err))
	}
}
