package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Migrate runs the full migration, printing progress to the console or the TUI.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	opts, err := r.engineOpts(cmd)
	if err != nil {
		return err
	}

	// Destination auth is checked first: without it nothing can be written.
	dest, err := r.youtubeDestination(ctx)
	if err != nil {
		return err
	}
	source, err := r.spotifySource(ctx)
	if err != nil {
		return err
	}
	defer r.persistToken()

	if cmd.Bool("tui") {
		return r.runTUI(ctx, source, r.runFunc(source, dest, opts, !cmd.Bool("no-journal")), true, opts.Only)
	}

	var journal tasks.Journal
	if !cmd.Bool("no-journal") {
		repo, closeRepo, err := r.openRepository(ctx)
		if err != nil {
			r.logger.Warn("run will not be journaled", "error", err)
		} else {
			defer closeRepo()
			journal = repositories.NewJournal(repo)
		}
	}

	engine := r.newEngine(source, dest, opts, journal)

	if opts.DryRun {
		r.writePlain("Dry run: YouTube Music will not be changed\n")
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.printProgress(update)
		}
	}()

	summary, err := engine.Run(ctx, progressCh)
	close(progressCh)
	<-done

	if summary != nil {
		r.printSummary(summary, opts.FailedSongsFile)
	}
	return err
}

// engineOpts combines the [migration] config section with command flags.
func (r *Runner) engineOpts(cmd *cli.Command) (tasks.EngineOpts, error) {
	opts := tasks.OptsFromConfig(r.config.Migration)

	if mode := strings.ToLower(cmd.String("duplicate-mode")); mode != "" {
		if mode != shared.DuplicateMerge && mode != shared.DuplicateSkip {
			return opts, fmt.Errorf("%w: --duplicate-mode must be %q or %q, got %q",
				shared.ErrInvalidArgument, shared.DuplicateMerge, shared.DuplicateSkip, mode)
		}
		opts.DuplicateMode = mode
	}

	opts.Only = cmd.StringSlice("playlist")
	opts.IncludeLiked = !cmd.Bool("no-liked")
	opts.DryRun = cmd.Bool("dry-run")
	return opts, nil
}

func (r *Runner) newEngine(source services.Source, dest services.Destination, opts tasks.EngineOpts, journal tasks.Journal) *tasks.MigrationEngine {
	store := state.NewStore(r.config.Migration.StateFile, r.logger)
	engine := tasks.NewMigrationEngine(source, dest, store, opts, r.logger)
	if journal != nil {
		engine.WithJournal(journal)
	}
	return engine
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.StartPlaylist:
		r.writePlain("\n▶ %s\n", update.Message)
	case tasks.MatchTracks:
		r.logger.Debug(update.Message)
	case tasks.WritePlaylist, tasks.FinishPlaylist:
		r.writePlain("  %s\n", update.Message)
	case tasks.Complete:
		r.writePlainln("%s", update.Message)
	default:
		r.writePlain("%s\n", update.Message)
	}
}

func (r *Runner) printSummary(s *tasks.RunSummary, reportPath string) {
	r.writePlain("\n")
	if s.DryRun {
		r.writePlainHeader("Dry Run Complete")
	} else {
		r.writePlainHeader("Migration Complete")
	}

	r.writePlain("Playlists: %d processed (%d created, %d merged, %d skipped, %d failed)\n",
		s.Playlists, s.Created, s.Merged, s.Skipped, s.Failed)
	r.writePlain("Tracks: %d matched, %d not found, %d added\n", s.TracksMatched, s.TracksMissing, s.TracksAdded)
	r.writePlain("Searches: %d\n", s.Searches)
	r.writePlain("Cached songs: %d\n", s.CachedSongs)
	r.writePlain("Failed songs: %d\n", s.FailedSongs)
	r.writePlain("Duration: %s\n", s.Duration.Round(100*time.Millisecond))

	var failed []tasks.PlaylistOutcome
	for _, o := range s.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		r.writePlain("\nPlaylists with errors:\n")
		for _, o := range failed {
			r.writePlain("  - %s: %v\n", o.Name, o.Err)
		}
	}

	if s.FailedSongs > 0 && reportPath != "" {
		r.writePlain("\nSongs that could not be matched are listed in %s\n", reportPath)
	}
}
