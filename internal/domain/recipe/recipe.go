// Package recipe defines the recipes proposed by the meal recommender.
// Recipes live only in a session and are never persisted.
package recipe

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/shared"
)

// Recipe is one recommendation
type Recipe struct {
	Title        string        `json:"title"`
	Instructions string        `json:"instructions"`
	Time         shared.Number `json:"time"`
	Ingredients  []string      `json:"ingredients"`
	Calories     shared.Number `json:"calories"`
	Fiber        shared.Number `json:"fiber"`
	Protein      shared.Number `json:"protein"`
}

var stepSeparator = regexp.MustCompile(`\s*\d+\.\s*`)

// Steps splits the instruction text on its "1. ", "2. " markers.
func (r Recipe) Steps() []string {
	parts := stepSeparator.Split(r.Instructions, -1)
	steps := make([]string, 0, len(parts))
	for _, part := range parts {
		if step := strings.TrimSpace(part); step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}

// Validate checks the fields a view needs to display and order a recipe.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}
	if len(r.Ingredients) == 0 {
		return ErrNoIngredients
	}
	return nil
}

// Equal reports whether two recipes describe the same dish.
func (r Recipe) Equal(other Recipe) bool {
	if r.Title != other.Title || r.Instructions != other.Instructions {
		return false
	}
	if len(r.Ingredients) != len(other.Ingredients) {
		return false
	}
	for i := range r.Ingredients {
		if r.Ingredients[i] != other.Ingredients[i] {
			return false
		}
	}
	return true
}

var trailingIndex = regexp.MustCompile(`(\d+)\s*$`)

// ParseRecommendations reads the recipes out of a model response. The
// response is an object keyed "recipe 1", "recipe 2", ... and the result
// follows that numbering. Entries that do not decode or validate are
// skipped; the response fails only when none remain.
func ParseRecommendations(text string) ([]Recipe, error) {
	var keyed map[string]json.RawMessage
	if err := shared.DecodeJSONObject(text, &keyed); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iok := keyIndex(keys[i])
		nj, jok := keyIndex(keys[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})

	recipes := make([]Recipe, 0, len(keys))
	var firstErr error
	for _, key := range keys {
		var r Recipe
		err := json.Unmarshal(keyed[key], &r)
		if err == nil {
			err = r.Validate()
		}
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", key, err)
			}
			continue
		}
		recipes = append(recipes, r)
	}

	if len(recipes) == 0 {
		if firstErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoRecipes, firstErr)
		}
		return nil, ErrNoRecipes
	}
	return recipes, nil
}

func keyIndex(key string) (int, bool) {
	m := trailingIndex.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}
