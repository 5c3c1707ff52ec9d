// Package ai provides the application layer for AI operations
package ai

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// Sampling settings per call
const (
	GoalsTemperature           = 0.3
	GoalsMaxTokens             = 4000
	RecommendationsTemperature = 0.7
	RecommendationsMaxTokens   = 1500
)

// GoalsWarningPrefix starts the warning shown when stored goals are sent verbatim
const GoalsWarningPrefix = "Diet goals might be incorrectly parsed: "

// NutritionService builds prompts and returns the model's raw text
type NutritionService struct {
	provider outbound.CompletionProvider
	logger   *zap.Logger
}

var _ inbound.MealAdvisor = (*NutritionService)(nil)

// NewNutritionService creates a new nutrition service
func NewNutritionService(provider outbound.CompletionProvider, logger *zap.Logger) *NutritionService {
	namedLogger := logger.Named("nutrition-service")
	namedLogger.Info("Nutrition service initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
	)

	return &NutritionService{
		provider: provider,
		logger:   namedLogger,
	}
}

// GenerateDietaryGoals returns the raw goals answer for a profile
func (s *NutritionService) GenerateDietaryGoals(ctx context.Context, q inbound.GoalsQuery) (string, error) {
	s.logger.Info("Generating dietary goals",
		zap.Int("age", q.Age),
		zap.String("sex", string(q.Sex)),
	)

	return s.complete(ctx, "dietary_goals", outbound.CompletionRequest{
		Messages: []outbound.Message{
			{Role: outbound.RoleSystem, Content: nutritionistSystemPrompt},
			{Role: outbound.RoleUser, Content: buildGoalsPrompt(q)},
		},
		Temperature: GoalsTemperature,
		MaxTokens:   GoalsMaxTokens,
	})
}

// GenerateMealRecommendations returns the raw three-recipe answer. The caller
// parses it so that an unparseable answer can be shown as is.
func (s *NutritionService) GenerateMealRecommendations(ctx context.Context, p profile.Snapshot, preferences string) (*inbound.Recommendations, error) {
	s.logger.Info("Generating meal recommendations",
		zap.String("username", p.Username),
		zap.Int("preferences_length", len(preferences)),
	)

	result := &inbound.Recommendations{}

	goals, ok := goalsConstraint(p.DietaryGoals)
	if !ok {
		s.logger.Warn("Stored goals are not parseable, sending them verbatim",
			zap.String("username", p.Username),
			zap.String("goals", p.DietaryGoals),
		)
		result.GoalsWarning = GoalsWarningPrefix + p.DietaryGoals
	}

	raw, err := s.complete(ctx, "meal_recommendations", outbound.CompletionRequest{
		Messages: []outbound.Message{
			{Role: outbound.RoleSystem, Content: cookSystemPrompt},
			{Role: outbound.RoleUser, Content: buildRecommendationPrompt(p.DietaryRestrictions, preferences, goals)},
		},
		Temperature: RecommendationsTemperature,
		MaxTokens:   RecommendationsMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	result.Raw = raw
	return result, nil
}

func (s *NutritionService) complete(ctx context.Context, operation string, req outbound.CompletionRequest) (string, error) {
	completion, err := s.provider.Complete(ctx, req)
	if err != nil {
		s.logger.Error("Completion failed",
			zap.String("operation", operation),
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		if _, ok := apperrors.As(err); ok {
			return "", err
		}
		return "", apperrors.NewExternalServiceError(s.provider.Name(), err)
	}

	if strings.TrimSpace(completion.Content) == "" {
		s.logger.Warn("Completion returned no content",
			zap.String("operation", operation),
			zap.String("finish_reason", completion.FinishReason),
		)
		return "", apperrors.NewExternalServiceError(s.provider.Name(), nil).
			WithMetadata("reason", "empty completion")
	}

	s.logger.Debug("Completion received",
		zap.String("operation", operation),
		zap.String("model", completion.Model),
		zap.Int("prompt_tokens", completion.PromptTokens),
		zap.Int("completion_tokens", completion.CompletionTokens),
	)
	return completion.Content, nil
}
