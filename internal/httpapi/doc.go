// Package httpapi is the browser-facing HTTP adapter for /recipes.
//
//	GET  /recipes  list every recipe
//	POST /recipes  any command payload the normalizer accepts
//
// Replies are single-key JSON envelopes named after the outcome
// (RecipeAdded, RolledRecipe, RecipeDeleted, Recipes). Rejected requests
// get a 400 with {"error": ..., "code": ...}.
package httpapi
