// Package persist stores the recipe snapshot durably.
//
// A Gateway turns a store.Store into its versioned snapshot blob and hands
// it to a Backend. Backends only move opaque bytes: they know nothing about
// recipes or snapshot versions.
//
// Backends:
//   - sqlite   single-row table in a local SQLite database (default)
//   - postgres single-row table reached through pgx
//   - file     one JSON file, replaced atomically on every write
//   - s3       one object in an S3-compatible bucket
//   - memory   process-local, for tests and ephemeral runs
//
// Every write replaces the whole snapshot. There is no history.
package persist
