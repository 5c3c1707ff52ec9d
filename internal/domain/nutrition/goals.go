// Package nutrition holds daily dietary goals and their per-meal split.
package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/shared"
)

// DefaultGoalsText is stored when no goals could be generated at registration.
const DefaultGoalsText = "to be completed later"

// MealsPerDay is the divisor used for per-meal targets.
const MealsPerDay = 3

// ErrMissingGoal is returned when a goals object lacks one of its keys.
var ErrMissingGoal = errors.New("dietary goals are incomplete")

// Goals are the daily intake targets.
type Goals struct {
	Explanation string        `json:"explanation,omitempty"`
	Calories    shared.Number `json:"calories"`
	Fiber       shared.Number `json:"fiber"`
	Protein     shared.Number `json:"protein"`
}

// MealShare is one meal's portion of the daily goals.
type MealShare struct {
	Calories int
	Fiber    int
	Protein  int
}

// ParseGoals locates the JSON object in text and reads the goals from it.
// All three numeric keys must be present.
func ParseGoals(text string) (Goals, error) {
	var raw struct {
		Explanation string         `json:"explanation"`
		Calories    *shared.Number `json:"calories"`
		Fiber       *shared.Number `json:"fiber"`
		Protein     *shared.Number `json:"protein"`
	}
	if err := shared.DecodeJSONObject(text, &raw); err != nil {
		return Goals{}, err
	}
	if raw.Calories == nil || raw.Fiber == nil || raw.Protein == nil {
		return Goals{}, ErrMissingGoal
	}

	return Goals{
		Explanation: raw.Explanation,
		Calories:    *raw.Calories,
		Fiber:       *raw.Fiber,
		Protein:     *raw.Protein,
	}, nil
}

// PerMeal divides each goal by MealsPerDay, rounding to the nearest integer.
func (g Goals) PerMeal() MealShare {
	share := func(n shared.Number) int {
		return int(math.Round(n.Float64() / MealsPerDay))
	}
	return MealShare{
		Calories: share(g.Calories),
		Fiber:    share(g.Fiber),
		Protein:  share(g.Protein),
	}
}

// Summary is the one-line form shown after registration.
func (g Goals) Summary() string {
	return fmt.Sprintf("Calories: %s, Fiber: %sg, Protein: %sg", g.Calories, g.Fiber, g.Protein)
}

// Encode renders goals as the JSON text stored on a profile.
func (g Goals) Encode() string {
	data, err := json.Marshal(g)
	if err != nil {
		// Goals only holds strings and floats.
		panic(err)
	}
	return string(data)
}
