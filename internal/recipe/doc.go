// Package recipe provides the transport-independent types shared by every
// layer of the recipe decider.
//
// This package contains type definitions and the error taxonomy only. All
// other internal packages import recipe; recipe imports nothing internal.
//
// Key design constraints:
//   - A Recipe has no stable id; its position in the collection is its identity
//   - Every transport reduces to exactly one Command before touching the store
//   - JSON field names match the browser wire format (name, instructions)
package recipe
