// Package router implements the command router shared by every channel.
//
// Single-Writer Event Loop:
// All commands, whatever transport they arrived on, are funneled through one
// FIFO queue and applied by Router.Run in a single goroutine. That goroutine
// is the only code that touches the store and its random source.
//
// Request Processing Flow:
//  1. An adapter normalizes a payload into a recipe.Command
//  2. Dispatch enqueues the command with its origin channel and waits
//  3. Run applies the command to the store
//  4. Successful mutations are persisted through the Saver
//  5. The notification step fans the result out through the Notifier
//  6. The recipe.Result is handed back to the waiting adapter
//
// Persistence failures are logged and counted but never reported to the
// caller; the in-memory state stays authoritative for the process lifetime.
// Failed commands never reach the notification step.
package router
