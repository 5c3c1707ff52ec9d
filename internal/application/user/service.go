// Package user provides the application layer for account management
package user

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// Warnings shown on the register view when goals fall back to the default text
const (
	WarningGoalsUnavailable = "Could not generate dietary goals right now. They will be completed later."
	WarningGoalsUnparseable = "Could not parse AI response. Dietary goals will be completed later."
)

// GoalGenerator produces the raw dietary goals text for a new profile
type GoalGenerator interface {
	GenerateDietaryGoals(ctx context.Context, query inbound.GoalsQuery) (string, error)
}

// CredentialService implements registration and login use cases
type CredentialService struct {
	profiles outbound.ProfileRepository
	goals    GoalGenerator
	logger   *zap.Logger
}

var _ inbound.CredentialService = (*CredentialService)(nil)

// NewCredentialService creates a new credential service
func NewCredentialService(
	profiles outbound.ProfileRepository,
	goals GoalGenerator,
	logger *zap.Logger,
) *CredentialService {
	return &CredentialService{
		profiles: profiles,
		goals:    goals,
		logger:   logger.Named("credential-service"),
	}
}

// Authenticate looks the username up and checks the password. Unknown users
// and wrong passwords both yield CodeInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, cmd inbound.LoginCommand) (*profile.Profile, error) {
	cmd.Username = profile.NormalizeUsername(cmd.Username)
	s.logger.Info("Login attempt", zap.String("username", cmd.Username))

	p, err := s.profiles.FindByUsername(ctx, cmd.Username)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeProfileNotFound) {
			return nil, apperrors.NewInvalidCredentialsError()
		}
		s.logger.Error("Profile lookup failed", zap.String("username", cmd.Username), zap.Error(err))
		return nil, err
	}

	if err := p.CheckPassword(cmd.Password); err != nil {
		s.logger.Warn("Invalid password attempt", zap.String("username", cmd.Username))
		return nil, apperrors.NewInvalidCredentialsError()
	}

	s.logger.Info("User logged in", zap.String("username", p.Username()))
	return p, nil
}

// CreateAccount stores a new profile
func (s *CredentialService) CreateAccount(ctx context.Context, p *profile.Profile) error {
	if err := s.profiles.Create(ctx, p); err != nil {
		s.logger.Warn("Account creation failed",
			zap.String("username", p.Username()),
			zap.String("code", string(apperrors.GetCode(err))),
			zap.Error(err),
		)
		return err
	}

	for _, event := range p.Events() {
		s.logger.Info("Domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
			zap.String("username", p.Username()),
		)
	}
	return nil
}

// Register asks for dietary goals, builds the profile and stores it. A goal
// generation or parse failure is not fatal: the default goals text is stored
// and the result carries a warning.
func (s *CredentialService) Register(ctx context.Context, cmd inbound.RegisterCommand) (*inbound.RegistrationResult, error) {
	s.logger.Info("Registering new user", zap.String("username", cmd.Username))

	sex := profile.Sex(cmd.Sex)
	result := &inbound.RegistrationResult{}

	goalsText := nutrition.DefaultGoalsText
	raw, err := s.goals.GenerateDietaryGoals(ctx, inbound.GoalsQuery{
		Age:      cmd.Age,
		Sex:      sex,
		WeightKg: cmd.WeightKg,
		HeightCm: cmd.HeightCm,
	})
	switch {
	case err != nil:
		s.logger.Warn("Goal generation failed", zap.Error(err))
		result.GoalsWarning = WarningGoalsUnavailable
	default:
		goals, perr := nutrition.ParseGoals(raw)
		if perr != nil {
			s.logger.Warn("Goal response unparseable", zap.Error(perr), zap.String("raw", raw))
			result.GoalsWarning = WarningGoalsUnparseable
			break
		}
		goalsText = goals.Encode()
		result.Goals = &goals
	}

	p, err := profile.NewProfile(profile.Params{
		Username:            cmd.Username,
		Password:            cmd.Password,
		Age:                 cmd.Age,
		Sex:                 sex,
		WeightKg:            cmd.WeightKg,
		HeightCm:            cmd.HeightCm,
		DietaryRestrictions: profile.ComposeRestrictions(cmd.Restrictions, cmd.Allergies, cmd.Preferences),
		DietaryGoals:        goalsText,
	})
	if err != nil {
		if isProfileValidationError(err) {
			return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if err := s.CreateAccount(ctx, p); err != nil {
		return nil, err
	}

	result.Profile = p
	s.logger.Info("User registered successfully",
		zap.String("profile_id", p.ID().String()),
		zap.String("username", p.Username()),
		zap.Bool("default_goals", result.Goals == nil),
	)
	return result, nil
}

func isProfileValidationError(err error) bool {
	for _, target := range []error{
		profile.ErrUsernameRequired,
		profile.ErrUsernameTooLong,
		profile.ErrPasswordRequired,
		profile.ErrPasswordTooLong,
		profile.ErrInvalidAge,
		profile.ErrInvalidSex,
		profile.ErrInvalidWeight,
		profile.ErrInvalidHeight,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}
