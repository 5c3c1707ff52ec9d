package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

const uniqueViolation = "23505"

// ProfileRepository implements outbound.ProfileRepository with raw SQL over pgx
type ProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ outbound.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger.Named("profile-repository"),
	}
}

// Create inserts a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	rec := p.Record()

	query := `
		INSERT INTO users (id, username, password_hash, age, sex, weight_kg, height_cm,
			dietary_restrictions, dietary_goals, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		rec.ID.String(),
		rec.Username,
		rec.PasswordHash,
		rec.Age,
		string(rec.Sex),
		rec.WeightKg,
		rec.HeightCm,
		rec.DietaryRestrictions,
		rec.DietaryGoals,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.NewUsernameAlreadyExistsError(rec.Username)
		}
		r.logger.Error("Failed to create profile",
			zap.String("username", rec.Username),
			zap.Error(err),
		)
		return apperrors.NewDatabaseError("create profile", err)
	}

	r.logger.Info("Profile created", zap.String("profile_id", rec.ID.String()))
	return nil
}

// FindByUsername retrieves a profile by exact username
func (r *ProfileRepository) FindByUsername(ctx context.Context, username string) (*profile.Profile, error) {
	query := `
		SELECT id, username, password_hash, age, sex, weight_kg, height_cm,
			dietary_restrictions, dietary_goals, created_at, updated_at
		FROM users
		WHERE username = $1`

	var (
		rec profile.Record
		id  string
		sex string
	)
	err := r.db.QueryRow(ctx, query, username).Scan(
		&id,
		&rec.Username,
		&rec.PasswordHash,
		&rec.Age,
		&sex,
		&rec.WeightKg,
		&rec.HeightCm,
		&rec.DietaryRestrictions,
		&rec.DietaryGoals,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewProfileNotFoundError(username)
		}
		return nil, apperrors.NewDatabaseError("find profile", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("find profile", err)
	}
	rec.ID = parsed
	rec.Sex = profile.Sex(sex)

	return profile.Rehydrate(rec), nil
}
