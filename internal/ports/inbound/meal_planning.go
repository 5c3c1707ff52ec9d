// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/recipe"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// CredentialService registers and authenticates profiles
type CredentialService interface {
	Authenticate(ctx context.Context, cmd LoginCommand) (*profile.Profile, error)
	CreateAccount(ctx context.Context, p *profile.Profile) error
	Register(ctx context.Context, cmd RegisterCommand) (*RegistrationResult, error)
}

// MealAdvisor asks the language model for goals and recipes
type MealAdvisor interface {
	GenerateDietaryGoals(ctx context.Context, query GoalsQuery) (string, error)
	GenerateMealRecommendations(ctx context.Context, p profile.Snapshot, preferences string) (*Recommendations, error)
}

// ImageLookup finds a picture for a recipe title
type ImageLookup interface {
	ImageFor(ctx context.Context, recipeName string) (*outbound.Photo, error)
}

// LoginCommand contains login form data
type LoginCommand struct {
	Username string `form:"username" validate:"required,notblank"`
	Password string `form:"password" validate:"required"`
}

// RegisterCommand contains registration form data
type RegisterCommand struct {
	Username     string  `form:"username" validate:"required,notblank,max=64"`
	Password     string  `form:"password" validate:"required,max=72"`
	Age          int     `form:"age" validate:"required,min=1,max=120"`
	Sex          string  `form:"sex" validate:"required,oneof=M F"`
	WeightKg     float64 `form:"weight" validate:"required,min=1,max=500"`
	HeightCm     float64 `form:"height" validate:"required,min=1,max=300"`
	Restrictions string  `form:"restrictions" validate:"max=2000"`
	Allergies    string  `form:"allergies" validate:"max=2000"`
	Preferences  string  `form:"preferences" validate:"max=2000"`
}

// MealRequestCommand contains the meal preparation form data
type MealRequestCommand struct {
	Preferences string `form:"preferences" validate:"max=2000"`
}

// RegistrationResult reports what happened to the goals during sign-up
type RegistrationResult struct {
	Profile *profile.Profile
	// Goals is nil when the default goals text was stored
	Goals *nutrition.Goals
	// GoalsWarning explains why the default goals were stored
	GoalsWarning string
}

// GoalsQuery is the body data the goal prompt is built from
type GoalsQuery struct {
	Age      int
	Sex      profile.Sex
	WeightKg float64
	HeightCm float64
}

// Recommendations is the Recipe Generator's answer
type Recommendations struct {
	// Raw is the model's text, kept for the recipe choice view
	Raw string
	// GoalsWarning is set when the stored goals could not be parsed and
	// were sent to the model verbatim
	GoalsWarning string
}

// Recipes parses Raw with the shared brace-slice contract
func (r Recommendations) Recipes() ([]recipe.Recipe, error) {
	return recipe.ParseRecommendations(r.Raw)
}
