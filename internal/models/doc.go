// Package models defines the entities shared by the migration engine, the service clients and the run journal.
//
// The package contains two categories of types:
//
// 1. Service records: lightweight structs describing data read from the music services
//   - [Track] : a source song (title, artists, album, source id)
//   - [Playlist] : playlist metadata from either side
//
// 2. Journal entities: rows persisted by the repositories package
//   - [MigrationJob] : one migrate invocation with its totals
//   - [JobPlaylist] : the per-playlist outcome inside a job
//
// The [Repository] interface describes the journal's data access.
package models
