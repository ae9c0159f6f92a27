// Package command turns raw channel payloads into recipe.Command values.
//
// Two independent parser families target the same Command type and are tried
// in a fixed order:
//
//  1. Loose parsers match the ad-hoc JSON the browser UI sends, using cheap
//     key checks against a generic object ({"RollRecipe": true},
//     {"DeleteRecipe": {"index": 2}}, a bare {"name": ..., "instructions": ...}).
//  2. The strict parser decodes the externally tagged contract shape
//     ({"AddRecipe": {...}}, "GetRecipes", {"RollRecipe": null}, ...).
//
// The first parser that matches wins. A parser that matches but finds the
// payload invalid stops the chain with MALFORMED_REQUEST; when nothing
// matches the payload is rejected with MALFORMED_REQUEST as well.
//
// AddRecipe text is never rewritten; only the presence of both fields is
// checked.
package command
