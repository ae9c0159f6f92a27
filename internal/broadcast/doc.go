// Package broadcast fans state-change notifications out to WebSocket
// subscribers.
//
// The router calls Hub.NotifyAll after every successful mutation (and after
// rolls that did not get a direct reply). Events mirror the change:
//
//	{"NewRecipe": {"name": "...", "instructions": "..."}}
//	{"RecipesUpdated": {"recipes": [...]}}
//	{"RecipeRolled": {"recipe": {...} | null}}
package broadcast
