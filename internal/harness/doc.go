// Package harness runs recipe scenarios against a live, isolated instance
// of the service and records what every channel observed.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: add_then_roll
//	description: "A recipe added over HTTP is announced and can be rolled"
//	seed: 7
//	recipes:
//	  - {name: Soup, instructions: Boil.}
//	steps:
//	  - channel: http
//	    body: '{"AddRecipe":{"name":"Pie","instructions":"Bake."}}'
//	    expect:
//	      status: 201
//	      broadcasts: [NewRecipe]
//	  - channel: ws
//	    body: '{"RollRecipe": true}'
//	    expect:
//	      broadcasts: [RecipeRolled]
//	  - channel: rpc
//	    tool: AddRecipe
//	    args: {name: "", instructions: x}
//	    expect:
//	      error: MALFORMED_REQUEST
//	      broadcasts: []
//	assertions:
//	  - type: broadcast_count
//	    event: NewRecipe
//	    count: 1
//	  - type: final_state
//	    recipes: [Soup, Pie]
//
// Steps use one of three channels: http (POST or GET on /recipes), ws (a
// text frame on a WebSocket that also watches broadcasts) and rpc (an MCP
// tool call).
//
// # Assertion Types
//
//   - broadcast_count: an event tag was broadcast exactly N times
//   - broadcast_order: event tags appear in the given order
//   - dispatch_count: N commands reached the router, optionally with an outcome
//   - final_state: recipe names in the live collection and in the last
//     persisted snapshot
//
// # Deterministic Testing
//
// Each run uses a fresh store seeded from scenario.seed, an in-memory
// snapshot backend and a loopback server. Steps run one at a time and wait
// for their effects, so traces are identical across runs and can be
// compared against golden files.
package harness
