package gorm

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// ProfileRepository implements outbound.ProfileRepository using GORM
type ProfileRepository struct {
	db *gorm.DB
}

var _ outbound.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	model := ProfileToModel(p)

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if IsDuplicateKey(result.Error) {
			return apperrors.NewUsernameAlreadyExistsError(p.Username())
		}
		return apperrors.NewDatabaseError("create profile", result.Error)
	}

	return nil
}

// FindByUsername finds a profile by its exact username
func (r *ProfileRepository) FindByUsername(ctx context.Context, username string) (*profile.Profile, error) {
	var model ProfileModel

	// Reads may be served by a replica when dbresolver is registered
	result := r.db.WithContext(ctx).Where("username = ?", username).Take(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewProfileNotFoundError(username)
		}
		return nil, apperrors.NewDatabaseError("find profile", result.Error)
	}

	return ModelToProfile(&model), nil
}

// IsDuplicateKey reports unique constraint violations across drivers
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
