// Package tasks runs the Spotify → YouTube Music migration with real-time progress reporting.
//
// # Run
//
// [MigrationEngine.Run] walks every source playlist in listing order and then the liked songs:
//
//  1. Loads the persisted state and lists the destination library once into a [PlaylistIndex]
//  2. For each playlist the [Reconciler] decides create, merge or skip by exact name
//  3. Each track is resolved by the [Matcher]: run cache, then state, then a paced search
//  4. Matched video ids are written in batches, skipping ids already present
//  5. State and the failure report are saved after every playlist
//
// Searches that fail after retries become cached misses; a playlist that cannot be created ends the run.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Journal
//
// The optional [Journal] interface records each run and its per-playlist outcomes
// (repositories.MigrationRepository). Journal errors are logged and ignored.
package tasks
