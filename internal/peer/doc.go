// Package peer is the RPC channel for other processes.
//
// The server exposes three MCP tools over the streamable HTTP transport:
//
//	AddRecipe   {name, instructions} -> {recipe}
//	GetRecipes  {}                   -> {recipes}
//	RollRecipe  {}                   -> {recipe?}
//
// Peers cannot delete. Deletion is reserved for the browser channels.
//
// Client is the typed counterpart used by the peer CLI and by tests.
package peer
