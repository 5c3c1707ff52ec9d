package gorm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	gormrepo "github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/gorm"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/sqlite"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
	"github.com/JosephChataignon/hAIckers-team/test/testutils"
)

func newRepo(t *testing.T) *gormrepo.ProfileRepository {
	t.Helper()
	db, err := sqlite.SetupDatabase("", logger.Discard)
	require.NoError(t, err)
	return gormrepo.NewProfileRepository(db)
}

func TestProfileRepository_CreateAndFind(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	p := testutils.NewProfileFactory(1).Profile()

	require.NoError(t, repo.Create(ctx, p))

	found, err := repo.FindByUsername(ctx, p.Username())
	require.NoError(t, err)

	assert.Equal(t, p.ID(), found.ID())
	assert.Equal(t, p.Snapshot(), found.Snapshot())
	assert.NoError(t, found.CheckPassword(testutils.DefaultPassword))
}

func TestProfileRepository_DuplicateUsername(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	factory := testutils.NewProfileFactory(2)
	p := factory.Profile()

	require.NoError(t, repo.Create(ctx, p))

	err := repo.Create(ctx, factory.ProfileNamed(p.Username()))
	assert.True(t, apperrors.Is(err, apperrors.CodeUsernameAlreadyExists))
}

func TestProfileRepository_NotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.True(t, apperrors.Is(err, apperrors.CodeProfileNotFound))
}

func TestProfileRepository_ExactMatch(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	p := testutils.NewProfileFactory(3).ProfileNamed("Alice")
	require.NoError(t, repo.Create(ctx, p))

	_, err := repo.FindByUsername(ctx, "alice")
	assert.True(t, apperrors.Is(err, apperrors.CodeProfileNotFound))
}
