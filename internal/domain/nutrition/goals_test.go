package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/shared"
)

func TestParseGoals(t *testing.T) {
	goals, err := ParseGoals(`Here you go: {"explanation":"moderate activity","calories":2000,"fiber":30,"protein":100}`)
	require.NoError(t, err)

	assert.Equal(t, "moderate activity", goals.Explanation)
	assert.Equal(t, shared.Number(2000), goals.Calories)
	assert.Equal(t, shared.Number(30), goals.Fiber)
	assert.Equal(t, shared.Number(100), goals.Protein)
}

func TestParseGoals_Failures(t *testing.T) {
	_, err := ParseGoals(DefaultGoalsText)
	assert.ErrorIs(t, err, shared.ErrNoJSONObject)

	_, err = ParseGoals(`{"calories": 2000, "fiber": 30}`)
	assert.ErrorIs(t, err, ErrMissingGoal)

	_, err = ParseGoals(`{"calories": "lots", "fiber": 30, "protein": 90}`)
	assert.Error(t, err)
}

func TestGoals_PerMeal(t *testing.T) {
	goals := Goals{Calories: 2000, Fiber: 30, Protein: 101}

	share := goals.PerMeal()

	assert.Equal(t, MealShare{Calories: 667, Fiber: 10, Protein: 34}, share)
}

func TestGoals_EncodeRoundTrip(t *testing.T) {
	goals := Goals{Explanation: "why", Calories: 2100, Fiber: 28, Protein: 95.5}

	parsed, err := ParseGoals(goals.Encode())

	require.NoError(t, err)
	assert.Equal(t, goals, parsed)
	assert.Equal(t, "Calories: 2100, Fiber: 28g, Protein: 95.5g", goals.Summary())
}
