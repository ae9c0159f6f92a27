package recipe

import "fmt"

// Recipe is a named instruction payload. Equality is structural.
type Recipe struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// Kind identifies which command variant a Command carries.
type Kind int

const (
	// KindAdd appends a recipe to the collection.
	KindAdd Kind = iota + 1
	// KindList returns the whole collection.
	KindList
	// KindRoll picks one recipe uniformly at random.
	KindRoll
	// KindDelete removes the recipe at an index.
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "AddRecipe"
	case KindList:
		return "ListRecipes"
	case KindRoll:
		return "RollRecipe"
	case KindDelete:
		return "DeleteRecipe"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mutates reports whether commands of this kind change the collection.
// Only mutating commands trigger persistence.
func (k Kind) Mutates() bool {
	return k == KindAdd || k == KindDelete
}

// Command is the normalized form of a client intent.
//
// Recipe is set only for KindAdd; Index only for KindDelete. Use the
// constructors below rather than building a Command by hand.
type Command struct {
	Kind   Kind
	Recipe Recipe
	Index  int
}

// Add returns an AddRecipe command.
func Add(r Recipe) Command { return Command{Kind: KindAdd, Recipe: r} }

// List returns a ListRecipes command.
func List() Command { return Command{Kind: KindList} }

// Roll returns a RollRecipe command.
func Roll() Command { return Command{Kind: KindRoll} }

// Delete returns a DeleteRecipe command for the given index.
func Delete(index int) Command { return Command{Kind: KindDelete, Index: index} }

func (c Command) String() string {
	switch c.Kind {
	case KindAdd:
		return fmt.Sprintf("AddRecipe(%q)", c.Recipe.Name)
	case KindDelete:
		return fmt.Sprintf("DeleteRecipe(%d)", c.Index)
	default:
		return c.Kind.String()
	}
}

// Channel is the transport a command arrived through.
type Channel string

const (
	ChannelHTTP      Channel = "http"
	ChannelWebSocket Channel = "websocket"
	ChannelRPC       Channel = "rpc"
)

// Result is the value produced by applying a Command to the store.
//
// The adapter that received the command consumes it for its own reply and
// the router's notification step consumes the same value for the broadcast.
type Result struct {
	Kind Kind

	// Recipe is the added recipe, the deleted recipe, or the rolled recipe.
	// It is nil for a roll against an empty collection.
	Recipe *Recipe

	// Recipes is the full collection for list results and the refreshed
	// collection after a delete. Never nil for those kinds.
	Recipes []Recipe
}
