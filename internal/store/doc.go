// Package store holds the recipe collection owned by the router.
//
// The store is an ordered slice of recipes plus the pseudo-random generator
// used for rolls. It is deliberately not safe for concurrent use: exactly one
// goroutine (the router's event loop) owns a Store for the life of the
// process.
//
// # Addressing
//
// Records have no stable id. A record's position is its identity for the
// current run, so RemoveAt shifts every later record down by one. Index
// operations never clamp: an index outside [0, Len()) fails with
// INDEX_OUT_OF_RANGE and leaves the collection unchanged.
//
// # Snapshots
//
// Snapshot serializes the collection as a single blob tagged with the schema
// version:
//
//	{"V1":{"recipes":[{"name":"Soup","instructions":"Boil."}]}}
//
// Restore is total: truncated bytes, garbage, an unknown version tag or a
// blob carrying more than one tag all produce a fresh empty store, so a
// corrupt snapshot can never block startup.
package store
