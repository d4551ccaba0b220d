// Package ui implements the interactive migration screen using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow:
//  1. [PlaylistListView] : Browse Spotify playlists and toggle which to migrate
//  2. [ConfirmView] : Confirm the selection (or all playlists plus Liked Songs)
//  3. [MigrateView] : Spinner, playlist progress bar and the most recent engine messages
//  4. [ResultView] : Counts from the run summary and any playlist errors
//
// The [Model] receives progress through a channel fed by the migration engine. [Model.AutoStart] skips straight to
// [MigrateView] for `ytmigrate migrate --tui`.
package ui
