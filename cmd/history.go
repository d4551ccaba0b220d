package main

import (
	"context"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/urfave/cli/v3"
)

// History lists journaled runs, or the playlists of one run with --id.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	repo, closeRepo, err := r.openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	if id := cmd.String("id"); id != "" {
		job, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(job, true)
		}
		r.printJob(job, true)
		return nil
	}

	jobs, err := repo.List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}

	if len(jobs) == 0 {
		return r.writePlain("No migration runs recorded in %s\n", r.config.Database.Path)
	}

	r.writePlain("Found %d runs:\n\n", len(jobs))
	for _, job := range jobs {
		r.printJob(job, false)
	}
	return nil
}

func (r *Runner) printJob(job *models.MigrationJob, withPlaylists bool) {
	r.writePlain("%s  %s  %s", job.StartedAt.Local().Format(time.DateTime), job.ID, job.Status)
	if job.DryRun {
		r.writePlain(" (dry run)")
	}
	r.writePlain("\n")
	r.writePlain("   Playlists: %d/%d   Songs: %d matched, %d not found, %d added\n",
		job.PlaylistsDone, job.PlaylistsTotal, job.SongsMatched, job.SongsFailed, job.SongsAdded)
	if job.FinishedAt != nil {
		r.writePlain("   Duration: %s\n", job.FinishedAt.Sub(job.StartedAt).Round(time.Second))
	}
	if job.Error != "" {
		r.writePlain("   Error: %s\n", job.Error)
	}

	if withPlaylists {
		for _, p := range job.Playlists {
			r.writePlain("   %2d. %-30s %-7s matched %d, not found %d, added %d\n",
				p.Sequence, p.SourceName, p.Action, p.Matched, p.Failed, p.Added)
			if p.Error != "" {
				r.writePlain("       Error: %s\n", p.Error)
			}
		}
	}
	r.writePlain("\n")
}
