package profile

import (
	"fmt"
	"strings"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
)

// Snapshot is the part of a profile kept in a session and shown in views.
type Snapshot struct {
	Username            string  `json:"username"`
	Age                 int     `json:"age"`
	Sex                 Sex     `json:"sex"`
	WeightKg            float64 `json:"weight_kg"`
	HeightCm            float64 `json:"height_cm"`
	DietaryRestrictions string  `json:"dietary_restrictions"`
	DietaryGoals        string  `json:"dietary_goals"`
}

// BMI is weight over height in meters squared
func (s Snapshot) BMI() float64 {
	meters := s.HeightCm / 100
	if meters <= 0 {
		return 0
	}
	return s.WeightKg / (meters * meters)
}

// FormattedBMI renders the BMI with one decimal
func (s Snapshot) FormattedBMI() string {
	return fmt.Sprintf("%.1f", s.BMI())
}

// Restrictions splits the stored restrictions text into its labelled parts
func (s Snapshot) Restrictions() RestrictionParts {
	return ParseRestrictions(s.DietaryRestrictions)
}

// Goals parses the stored goals text
func (s Snapshot) Goals() (nutrition.Goals, error) {
	return nutrition.ParseGoals(s.DietaryGoals)
}

// RestrictionParts is the labelled form of a restrictions text
type RestrictionParts struct {
	Restrictions     string
	Allergies        string
	OtherPreferences string
}

// ComposeRestrictions joins the three registration fields into the stored text
func ComposeRestrictions(restrictions, allergies, preferences string) string {
	return fmt.Sprintf("Restrictions: %s\nAllergies: %s\nPreferences: %s",
		strings.TrimSpace(restrictions),
		strings.TrimSpace(allergies),
		strings.TrimSpace(preferences),
	)
}

// ParseRestrictions reverses ComposeRestrictions. Text without an
// "Allergies" label is treated as restrictions only.
func ParseRestrictions(text string) RestrictionParts {
	var parts RestrictionParts

	head, rest, found := strings.Cut(text, "Allergies")
	if !found {
		parts.Restrictions = strings.TrimSpace(text)
		return parts
	}
	parts.Restrictions = trimLabel(strings.Replace(head, "Restrictions:", "", 1))

	for _, label := range []string{"Other preferences", "Preferences"} {
		if allergies, preferences, ok := strings.Cut(rest, label); ok {
			parts.Allergies = trimLabel(allergies)
			parts.OtherPreferences = trimLabel(preferences)
			return parts
		}
	}

	parts.Allergies = trimLabel(rest)
	return parts
}

func trimLabel(s string) string {
	return strings.Trim(s, ": ,\n\r\t")
}
