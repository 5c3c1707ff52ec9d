// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// MockProfileRepository provides a mock implementation of ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

// Create stores a profile
func (m *MockProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// FindByUsername finds a profile by username
func (m *MockProfileRepository) FindByUsername(ctx context.Context, username string) (*profile.Profile, error) {
	args := m.Called(ctx, username)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Profile), nil
}

// InMemoryProfileRepository is a working ProfileRepository for round-trip tests
type InMemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]profile.Record
}

// NewInMemoryProfileRepository creates an empty repository
func NewInMemoryProfileRepository() *InMemoryProfileRepository {
	return &InMemoryProfileRepository{profiles: make(map[string]profile.Record)}
}

// Create stores p unless the username is taken
func (r *InMemoryProfileRepository) Create(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.Username()]; exists {
		return apperrors.NewUsernameAlreadyExistsError(p.Username())
	}
	r.profiles[p.Username()] = p.Record()
	return nil
}

// FindByUsername returns the stored profile
func (r *InMemoryProfileRepository) FindByUsername(_ context.Context, username string) (*profile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.profiles[username]
	if !ok {
		return nil, apperrors.NewProfileNotFoundError(username)
	}
	return profile.Rehydrate(rec), nil
}

// Len returns the number of stored profiles
func (r *InMemoryProfileRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// MockCompletionProvider provides a mock implementation of CompletionProvider
type MockCompletionProvider struct {
	mock.Mock
}

// Complete returns the configured completion
func (m *MockCompletionProvider) Complete(ctx context.Context, req outbound.CompletionRequest) (*outbound.Completion, error) {
	args := m.Called(ctx, req)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbound.Completion), nil
}

// Name returns the provider name
func (m *MockCompletionProvider) Name() string {
	return "mock"
}

// Model returns the model name
func (m *MockCompletionProvider) Model() string {
	return "mock-model"
}

// MockImageSearcher provides a mock implementation of ImageSearcher
type MockImageSearcher struct {
	mock.Mock
}

// Search returns the configured photo
func (m *MockImageSearcher) Search(ctx context.Context, query string) (*outbound.Photo, error) {
	args := m.Called(ctx, query)
	photo, _ := args.Get(0).(*outbound.Photo)
	return photo, args.Error(1)
}

// MockGoalGenerator provides a mock implementation of the goal generator
type MockGoalGenerator struct {
	mock.Mock
}

// GenerateDietaryGoals returns the configured raw text
func (m *MockGoalGenerator) GenerateDietaryGoals(ctx context.Context, query inbound.GoalsQuery) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}

// MockCacheRepository provides a mock implementation of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

// Get returns the configured bytes
func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// Set stores a value
func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Delete removes a value
func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Exists reports whether the key is present
func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// Ping checks the backend
func (m *MockCacheRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
