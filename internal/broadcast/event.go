package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/recipedecider/internal/recipe"
)

// Event type names as they appear on the wire.
const (
	TypeNewRecipe      = "NewRecipe"
	TypeRecipesUpdated = "RecipesUpdated"
	TypeRecipeRolled   = "RecipeRolled"
)

// Event is a state-change notification pushed to every subscriber.
// It serializes as a single-key envelope, e.g. {"NewRecipe": {...}}.
type Event struct {
	Type string
	body any
}

type recipesUpdated struct {
	Recipes []recipe.Recipe `json:"recipes"`
}

type recipeRolled struct {
	Recipe *recipe.Recipe `json:"recipe"`
}

// NewRecipe announces an appended recipe.
func NewRecipe(r recipe.Recipe) Event {
	return Event{Type: TypeNewRecipe, body: r}
}

// RecipesUpdated carries the full refreshed collection.
func RecipesUpdated(list []recipe.Recipe) Event {
	if list == nil {
		list = []recipe.Recipe{}
	}
	return Event{Type: TypeRecipesUpdated, body: recipesUpdated{Recipes: list}}
}

// RecipeRolled carries the selected recipe, or null when none was available.
func RecipeRolled(r *recipe.Recipe) Event {
	return Event{Type: TypeRecipeRolled, body: recipeRolled{Recipe: r}}
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == "" {
		return nil, fmt.Errorf("event has no type")
	}
	return json.Marshal(map[string]any{e.Type: e.body})
}

// EventFor maps a command result to the event that mirrors it.
// Returns false for results that carry no notification.
func EventFor(res recipe.Result) (Event, bool) {
	switch res.Kind {
	case recipe.KindAdd:
		if res.Recipe == nil {
			return Event{}, false
		}
		return NewRecipe(*res.Recipe), true
	case recipe.KindDelete, recipe.KindList:
		return RecipesUpdated(res.Recipes), true
	case recipe.KindRoll:
		return RecipeRolled(res.Recipe), true
	default:
		return Event{}, false
	}
}
