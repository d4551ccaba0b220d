package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
	"github.com/urfave/cli/v3"
)

type stateSummary struct {
	Path               string    `json:"path"`
	Version            string    `json:"version"`
	LastUpdated        time.Time `json:"last_updated"`
	CachedSongs        int       `json:"cached_songs"`
	Found              int       `json:"found"`
	NotFound           int       `json:"not_found"`
	FailedSongs        int       `json:"failed_songs"`
	CompletedPlaylists []string  `json:"completed_playlists"`
}

func (r *Runner) loadState() (*state.Store, *state.MigrationState) {
	store := state.NewStore(r.config.Migration.StateFile, r.logger)
	return store, store.Load()
}

// StateShow summarizes the state file.
func (r *Runner) StateShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	store, st := r.loadState()
	stats := st.Stats()

	summary := stateSummary{
		Path:               store.Path(),
		Version:            st.Version,
		LastUpdated:        st.LastUpdated.Time,
		CachedSongs:        stats.Cached,
		Found:              stats.Found,
		NotFound:           stats.Missed,
		FailedSongs:        stats.Failed,
		CompletedPlaylists: st.CompletedPlaylists,
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	r.writePlainHeader("Migration State")
	r.writePlain("File: %s (version %s)\n", summary.Path, summary.Version)
	if !summary.LastUpdated.IsZero() {
		r.writePlain("Last updated: %s\n", summary.LastUpdated.Format(time.RFC3339))
	}
	r.writePlain("Cached songs: %d (%d found, %d not found)\n", summary.CachedSongs, summary.Found, summary.NotFound)
	r.writePlain("Failed songs: %d\n", summary.FailedSongs)
	r.writePlain("Completed playlists: %d\n", len(summary.CompletedPlaylists))
	for _, id := range summary.CompletedPlaylists {
		r.writePlain("  - %s\n", id)
	}
	return nil
}

// StateReport exports the failed songs in the requested format.
func (r *Runner) StateReport(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	_, st := r.loadState()
	data, err := formatter.Export(format, st.FailedSongs)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		r.logger.Info("report written", "path", path, "failed", len(st.FailedSongs))
		return r.writePlain("✓ %d failed songs written to %s\n", len(st.FailedSongs), path)
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// StateReset deletes the state file and the failure report.
func (r *Runner) StateReset(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	store := state.NewStore(r.config.Migration.StateFile, r.logger)
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to delete %s", shared.ErrMissingArgument, store.Path())
	}

	if err := store.Reset(); err != nil {
		return err
	}
	if report := r.config.Migration.FailedSongsFile; report != "" {
		if err := formatter.WriteFailureReport(report, nil); err != nil {
			return err
		}
	}

	r.logger.Info("state reset", "path", store.Path())
	return r.writePlain("✓ Removed %s\n", store.Path())
}
