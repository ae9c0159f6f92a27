package peer

import "github.com/roach88/recipedecider/internal/recipe"

// Tool names.
const (
	ToolAddRecipe  = "AddRecipe"
	ToolGetRecipes = "GetRecipes"
	ToolRollRecipe = "RollRecipe"
)

// RecipeAdded is the AddRecipe reply.
type RecipeAdded struct {
	Recipe recipe.Recipe `json:"recipe"`
}

// Recipes is the GetRecipes reply.
type Recipes struct {
	Recipes []recipe.Recipe `json:"recipes"`
}

// RolledRecipe is the RollRecipe reply. Recipe is absent when the
// collection is empty.
type RolledRecipe struct {
	Recipe *recipe.Recipe `json:"recipe,omitempty"`
}

// noInput is the argument type of tools that take none.
type noInput struct{}
