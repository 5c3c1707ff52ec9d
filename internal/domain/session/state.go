// Package session holds the per-visitor state that the views read and
// mutate. One State exists per session token.
package session

import (
	"github.com/JosephChataignon/hAIckers-team/internal/domain/navigation"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/order"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/recipe"
)

// FlashLevel is the severity of a one-shot message
type FlashLevel string

const (
	FlashInfo    FlashLevel = "info"
	FlashSuccess FlashLevel = "success"
	FlashWarning FlashLevel = "warning"
	FlashError   FlashLevel = "error"
)

// Flash is a message shown once on the next render
type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
	Detail  string     `json:"detail,omitempty"`
}

// Registration remembers the outcome of a successful sign-up until the
// visitor moves on to the login view.
type Registration struct {
	Username     string           `json:"username"`
	Goals        *nutrition.Goals `json:"goals,omitempty"`
	GoalsWarning string           `json:"goals_warning,omitempty"`
}

// State is everything the views know about one visitor
type State struct {
	Authenticated          bool              `json:"authenticated"`
	Profile                *profile.Snapshot `json:"profile,omitempty"`
	CurrentView            navigation.View   `json:"current_view"`
	MealPreferences        string            `json:"meal_preferences,omitempty"`
	MealRecommendationsRaw string            `json:"meal_recommendations_raw,omitempty"`
	SelectedRecipe         *recipe.Recipe    `json:"selected_recipe,omitempty"`
	Order                  order.Tracker     `json:"order"`
	Registration           *Registration     `json:"registration,omitempty"`
	Flashes                []Flash           `json:"flashes,omitempty"`
}

// New returns the state of a fresh session
func New() *State {
	return &State{
		CurrentView: navigation.Onboarding,
		Order:       order.NewTracker(),
	}
}

// NavigateTo moves the session to v. Access is checked when the view is
// rendered, not here.
func (s *State) NavigateTo(v navigation.View) {
	s.CurrentView = v
}

// Resolve applies the access rule and returns the view to render
func (s *State) Resolve() navigation.View {
	view, authenticated := navigation.Resolve(s.CurrentView, s.Authenticated)
	if s.Authenticated && !authenticated {
		s.Logout()
		return s.CurrentView
	}
	s.CurrentView, s.Authenticated = view, authenticated
	return s.CurrentView
}

// Login marks the session as authenticated and opens the dashboard
func (s *State) Login(p profile.Snapshot) {
	s.Authenticated = true
	s.Profile = &p
	s.Registration = nil
	s.CurrentView = navigation.Dashboard
}

// Logout returns the session to its initial state
func (s *State) Logout() {
	*s = *New()
}

// StoreRecommendations keeps the raw model response for the recipe choice view
func (s *State) StoreRecommendations(preferences, raw string) {
	s.MealPreferences = preferences
	s.MealRecommendationsRaw = raw
}

// SelectRecipe makes r the recipe to order. Picking a different recipe
// discards any order in progress for the previous one.
func (s *State) SelectRecipe(r recipe.Recipe) {
	if s.SelectedRecipe == nil || !s.SelectedRecipe.Equal(r) {
		s.Order.Reset()
	}
	s.SelectedRecipe = &r
}

// AddFlash queues a message for the next render
func (s *State) AddFlash(level FlashLevel, message, detail string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: message, Detail: detail})
}

// PopFlashes returns and clears queued messages
func (s *State) PopFlashes() []Flash {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}
