package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/desertthunder/ytmigrate/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/ytmigrate-tui.log"

// TUI launches the interactive terminal UI for picking which playlists to migrate.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	opts, err := r.engineOpts(cmd)
	if err != nil {
		return err
	}

	dest, err := r.youtubeDestination(ctx)
	if err != nil {
		return err
	}
	source, err := r.spotifySource(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer r.persistToken()

	return r.runTUI(ctx, source, r.runFunc(source, dest, opts, true), false, nil)
}

// runTUI runs the bubbletea program. Without autoStart the playlist picker is shown first.
func (r *Runner) runTUI(ctx context.Context, source services.Source, run ui.RunFunc, autoStart bool, only []string) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, source, run)
	if autoStart {
		model.AutoStart(only)
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	summary, err := model.Summary()
	if summary != nil {
		r.printSummary(summary, r.config.Migration.FailedSongsFile)
	}
	return err
}

// runFunc adapts the migration engine to [ui.RunFunc]. A nil selection migrates everything opts allows.
func (r *Runner) runFunc(source services.Source, dest services.Destination, opts tasks.EngineOpts, journaled bool) ui.RunFunc {
	return func(ctx context.Context, only []string, progress chan<- tasks.ProgressUpdate) (*tasks.RunSummary, error) {
		o := opts
		if only != nil {
			o.Only = only
		}

		var journal tasks.Journal
		if journaled {
			repo, closeRepo, err := r.openRepository(ctx)
			if err != nil {
				r.logger.Warn("run will not be journaled", "error", err)
			} else {
				defer closeRepo()
				journal = repositories.NewJournal(repo)
			}
		}

		return r.newEngine(source, dest, o, journal).Run(ctx, progress)
	}
}
