package repositories

import (
	"context"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

// Journal adapts a [MigrationRepository] to [tasks.Journal].
type Journal struct {
	repo *MigrationRepository
}

// NewJournal wraps repo for use by the migration engine.
func NewJournal(repo *MigrationRepository) *Journal {
	return &Journal{repo: repo}
}

func (j *Journal) StartJob(ctx context.Context, job *models.MigrationJob) error {
	return j.repo.Create(ctx, job)
}

func (j *Journal) RecordPlaylist(ctx context.Context, jobID string, seq int, o tasks.PlaylistOutcome) error {
	p := &models.JobPlaylist{
		JobID:         jobID,
		Sequence:      seq,
		SourceName:    o.Name,
		DestinationID: o.DestinationID,
		Action:        o.Decision.String(),
		Matched:       o.Matched,
		Failed:        o.Missing,
		Added:         o.Added,
	}
	if o.Err != nil {
		p.Error = o.Err.Error()
	}
	return j.repo.AddPlaylist(ctx, p)
}

func (j *Journal) FinishJob(ctx context.Context, jobID string, summary *tasks.RunSummary, runErr error) error {
	job, err := j.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	job.FinishedAt = &now
	job.Status = models.JobCompleted
	if runErr != nil {
		job.Status = models.JobFailed
		job.Error = runErr.Error()
	}
	return j.repo.Update(ctx, job)
}
