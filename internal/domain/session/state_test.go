package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/navigation"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/order"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/recipe"
)

func testProfile() profile.Snapshot {
	return profile.Snapshot{
		Username: "ana",
		Age:      31,
		Sex:      profile.SexFemale,
		WeightKg: 62,
		HeightCm: 168,
	}
}

func TestNew(t *testing.T) {
	s := New()

	assert.False(t, s.Authenticated)
	assert.Nil(t, s.Profile)
	assert.Equal(t, navigation.Onboarding, s.CurrentView)
	assert.Equal(t, order.StateReady, s.Order.State)
}

func TestNavigateThenResolve(t *testing.T) {
	s := New()
	s.Login(testProfile())

	for _, v := range navigation.All() {
		s.NavigateTo(v)
		assert.Equal(t, v, s.Resolve())
		assert.Equal(t, v, s.CurrentView)
	}
}

func TestResolve_GuardsProtectedViews(t *testing.T) {
	s := New()
	s.NavigateTo(navigation.RecipeChoice)

	assert.Equal(t, navigation.Onboarding, s.Resolve())
	assert.False(t, s.Authenticated)
	assert.Equal(t, navigation.Onboarding, s.CurrentView)
}

func TestResolve_InvalidViewForcesLogout(t *testing.T) {
	s := New()
	s.Login(testProfile())
	s.CurrentView = navigation.Invalid

	assert.Equal(t, navigation.Onboarding, s.Resolve())
	assert.False(t, s.Authenticated)
	assert.Nil(t, s.Profile)
}

func TestLoginAndLogout(t *testing.T) {
	s := New()
	s.Registration = &Registration{Username: "ana"}

	s.Login(testProfile())

	assert.True(t, s.Authenticated)
	assert.Equal(t, navigation.Dashboard, s.CurrentView)
	require.NotNil(t, s.Profile)
	assert.Equal(t, "ana", s.Profile.Username)
	assert.Nil(t, s.Registration)

	s.StoreRecommendations("light", "{}")
	s.SelectRecipe(recipe.Recipe{Title: "Soup", Ingredients: []string{"water"}})
	s.AddFlash(FlashInfo, "hello", "")

	s.Logout()

	assert.Equal(t, New(), s)
}

func TestSelectRecipe_ResetsOrderOnlyForDifferentRecipe(t *testing.T) {
	soup := recipe.Recipe{Title: "Soup", Ingredients: []string{"water"}}
	salad := recipe.Recipe{Title: "Salad", Ingredients: []string{"lettuce"}}

	s := New()
	s.SelectRecipe(soup)
	s.Order = order.Tracker{State: order.StateCompleted, StartedAt: time.Now()}

	s.SelectRecipe(soup)
	assert.Equal(t, order.StateCompleted, s.Order.State, "same recipe keeps its order")

	s.SelectRecipe(salad)
	assert.Equal(t, order.StateReady, s.Order.State)
	assert.Equal(t, "Salad", s.SelectedRecipe.Title)
}

func TestFlashes(t *testing.T) {
	s := New()
	s.AddFlash(FlashError, "Invalid username or password", "")
	s.AddFlash(FlashWarning, "Could not parse AI response", "raw text")

	flashes := s.PopFlashes()

	require.Len(t, flashes, 2)
	assert.Equal(t, FlashError, flashes[0].Level)
	assert.Equal(t, "raw text", flashes[1].Detail)
	assert.Empty(t, s.PopFlashes())
}

func TestStateSurvivesJSON(t *testing.T) {
	s := New()
	s.Login(testProfile())
	s.NavigateTo(navigation.Ordering)
	s.SelectRecipe(recipe.Recipe{Title: "Soup", Ingredients: []string{"water"}, Calories: 300})
	s.Order = order.Tracker{State: order.StateProcessing, StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, s, &decoded)
}
