package recipe

import "errors"

// Domain errors for recommended recipes

var (
	ErrMissingTitle  = errors.New("recipe title is required")
	ErrNoIngredients = errors.New("recipe must have at least one ingredient")
	ErrNoRecipes     = errors.New("response contains no recipes")
)
