// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/recipe"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/shared"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
)

// DefaultPassword is the password every factory profile is created with
const DefaultPassword = "correct horse battery"

// ProfileFactory creates profiles from a seeded faker
type ProfileFactory struct {
	faker *gofakeit.Faker
}

// NewProfileFactory creates a new profile factory with seeded faker
func NewProfileFactory(seed int64) *ProfileFactory {
	return &ProfileFactory{faker: gofakeit.New(seed)}
}

// RegisterCommand returns a valid registration form
func (f *ProfileFactory) RegisterCommand() inbound.RegisterCommand {
	sex := "M"
	if f.faker.Bool() {
		sex = "F"
	}
	return inbound.RegisterCommand{
		Username:     f.faker.Username(),
		Password:     DefaultPassword,
		Age:          f.faker.IntRange(18, 90),
		Sex:          sex,
		WeightKg:     float64(f.faker.IntRange(45, 120)),
		HeightCm:     float64(f.faker.IntRange(150, 200)),
		Restrictions: f.faker.RandomString([]string{"vegetarian", "vegan", "none"}),
		Allergies:    f.faker.RandomString([]string{"peanuts", "gluten", "none"}),
		Preferences:  f.faker.RandomString([]string{"mediterranean", "spicy food", "none"}),
	}
}

// Profile returns a new, valid profile
func (f *ProfileFactory) Profile() *profile.Profile {
	return f.ProfileNamed("")
}

// ProfileNamed returns a new, valid profile with the given username, or a
// random one when username is empty
func (f *ProfileFactory) ProfileNamed(username string) *profile.Profile {
	cmd := f.RegisterCommand()
	if username != "" {
		cmd.Username = username
	}
	p, err := profile.NewProfile(profile.Params{
		Username:            cmd.Username,
		Password:            cmd.Password,
		Age:                 cmd.Age,
		Sex:                 profile.Sex(cmd.Sex),
		WeightKg:            cmd.WeightKg,
		HeightCm:            cmd.HeightCm,
		DietaryRestrictions: profile.ComposeRestrictions(cmd.Restrictions, cmd.Allergies, cmd.Preferences),
		DietaryGoals:        SampleGoals().Encode(),
	})
	if err != nil {
		panic(fmt.Sprintf("testutils: invalid factory profile: %v", err))
	}
	return p
}

// SampleGoals returns a fixed goals value
func SampleGoals() nutrition.Goals {
	return nutrition.Goals{
		Explanation: "Balanced intake for a moderately active adult.",
		Calories:    shared.Number(2100),
		Fiber:       shared.Number(30),
		Protein:     shared.Number(90),
	}
}

// SampleRecommendationsJSON is a well-formed three recipe answer
const SampleRecommendationsJSON = `{
  "recipe 1": {"title": "Gazpacho", "instructions": "1. Blend the vegetables. 2. Chill for an hour.", "time": 15, "ingredients": ["tomatoes", "cucumber", "olive oil"], "calories": 250, "fiber": 6, "protein": 5},
  "recipe 2": {"title": "Caprese Salad", "instructions": "1. Slice tomatoes and mozzarella. 2. Layer with basil.", "time": 10, "ingredients": ["tomatoes", "mozzarella", "basil"], "calories": 400, "fiber": 3, "protein": 20},
  "recipe 3": {"title": "Chicken Caesar Salad", "instructions": "1. Grill the chicken. 2. Toss with lettuce and dressing.", "time": 25, "ingredients": ["chicken breast", "romaine lettuce", "parmesan"], "calories": 550, "fiber": 4, "protein": 45}
}`

// SampleRecipes returns the recipes encoded in SampleRecommendationsJSON
func SampleRecipes() []recipe.Recipe {
	recipes, err := recipe.ParseRecommendations(SampleRecommendationsJSON)
	if err != nil {
		panic(fmt.Sprintf("testutils: invalid sample recommendations: %v", err))
	}
	return recipes
}
