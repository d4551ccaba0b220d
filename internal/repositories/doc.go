// Package repositories implements SQLite persistence for the migration run journal.
//
// The journal is a history of migrate invocations and is separate from the JSON state file, which remains the
// source of truth for resumption. Deleting the database loses history only.
//
// Key Implementations:
//   - [MigrationRepository] : Job rows with per-playlist outcomes
//   - [Journal] : Adapter that lets the migration engine write to a [MigrationRepository]
package repositories
