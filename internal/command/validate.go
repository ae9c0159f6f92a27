package command

import "github.com/roach88/recipedecider/internal/recipe"

// RecipeFields is an AddRecipe body as decoded from JSON. Pointers tell an
// absent or null field apart from an empty string.
type RecipeFields struct {
	Name         *string `json:"name"`
	Instructions *string `json:"instructions"`
}

// Recipe requires both fields and keeps their values byte for byte.
// Empty and whitespace-only strings are valid recipe text.
func (f RecipeFields) Recipe() (recipe.Recipe, error) {
	if f.Name == nil {
		return recipe.Recipe{}, recipe.Malformed("name is required", nil)
	}
	if f.Instructions == nil {
		return recipe.Recipe{}, recipe.Malformed("instructions is required", nil)
	}
	return recipe.Recipe{Name: *f.Name, Instructions: *f.Instructions}, nil
}
