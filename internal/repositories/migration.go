package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// ErrJobNotFound is returned when a job id has no row.
var ErrJobNotFound = errors.New("migration job not found")

var _ models.Repository[*models.MigrationJob] = (*MigrationRepository)(nil)

// MigrationRepository implements models.Repository[*models.MigrationJob] for the run journal.
//
// Jobs live in migration_jobs; their per-playlist outcomes in migration_playlists.
type MigrationRepository struct {
	db *sql.DB
}

// NewMigrationRepository creates a new MigrationRepository with the given database connection
func NewMigrationRepository(db *sql.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

const jobColumns = `
	id, started_at, finished_at, status, duplicate_mode, dry_run,
	playlists_total, playlists_done, songs_matched, songs_failed, songs_added, error
`

// Create inserts a new migration job, generating an ID when unset
func (r *MigrationRepository) Create(ctx context.Context, job *models.MigrationJob) error {
	if job.ID == "" {
		job.ID = shared.GenerateID()
	}
	if job.Status == "" {
		job.Status = models.JobRunning
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO migration_jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.StartedAt,
		nullTime(job.FinishedAt),
		string(job.Status),
		job.DuplicateMode,
		job.DryRun,
		job.PlaylistsTotal,
		job.PlaylistsDone,
		job.SongsMatched,
		job.SongsFailed,
		job.SongsAdded,
		nullString(job.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert migration job: %w", err)
	}
	return nil
}

// Get retrieves a job and its playlist outcomes by ID
func (r *MigrationRepository) Get(ctx context.Context, id string) (*models.MigrationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM migration_jobs WHERE id = ?`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration job: %w", err)
	}

	playlists, err := r.Playlists(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Playlists = playlists
	return job, nil
}

// List retrieves the most recent jobs, newest first. A limit below 1 returns every job.
func (r *MigrationRepository) List(ctx context.Context, limit int) ([]*models.MigrationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM migration_jobs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.MigrationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan migration job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// Update writes a job's status and counters
func (r *MigrationRepository) Update(ctx context.Context, job *models.MigrationJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE migration_jobs
		SET finished_at = ?, status = ?, playlists_total = ?, playlists_done = ?,
			songs_matched = ?, songs_failed = ?, songs_added = ?, error = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullTime(job.FinishedAt),
		string(job.Status),
		job.PlaylistsTotal,
		job.PlaylistsDone,
		job.SongsMatched,
		job.SongsFailed,
		job.SongsAdded,
		nullString(job.Error),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update migration job: %w", err)
	}
	return expectRow(result, job.ID)
}

// Delete removes a job and, by cascade, its playlist outcomes
func (r *MigrationRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM migration_playlists WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job playlists: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM migration_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete migration job: %w", err)
	}
	if err := expectRow(result, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// AddPlaylist records a playlist outcome and bumps the job's counters in one transaction
func (r *MigrationRepository) AddPlaylist(ctx context.Context, p *models.JobPlaylist) error {
	if p.JobID == "" || p.SourceName == "" {
		return fmt.Errorf("validation failed: job id and source name are required")
	}
	if p.ID == "" {
		p.ID = shared.GenerateID()
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO migration_playlists (
			id, job_id, sequence, source_name, destination_id, action,
			matched, failed, added, error, recorded_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.JobID, p.Sequence, p.SourceName, nullString(p.DestinationID), p.Action,
		p.Matched, p.Failed, p.Added, nullString(p.Error), p.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job playlist: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE migration_jobs
		SET playlists_done = playlists_done + 1,
			songs_matched = songs_matched + ?,
			songs_failed = songs_failed + ?,
			songs_added = songs_added + ?
		WHERE id = ?
	`, p.Matched, p.Failed, p.Added, p.JobID)
	if err != nil {
		return fmt.Errorf("failed to update job counters: %w", err)
	}
	if err := expectRow(result, p.JobID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job playlist: %w", err)
	}
	return nil
}

// Playlists lists a job's playlist outcomes in run order
func (r *MigrationRepository) Playlists(ctx context.Context, jobID string) ([]models.JobPlaylist, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, sequence, source_name, destination_id, action,
			matched, failed, added, error, recorded_at
		FROM migration_playlists
		WHERE job_id = ?
		ORDER BY sequence
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.JobPlaylist
	for rows.Next() {
		var (
			p             models.JobPlaylist
			destinationID sql.NullString
			errorMessage  sql.NullString
		)
		err := rows.Scan(
			&p.ID, &p.JobID, &p.Sequence, &p.SourceName, &destinationID, &p.Action,
			&p.Matched, &p.Failed, &p.Added, &errorMessage, &p.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job playlist: %w", err)
		}
		p.DestinationID = destinationID.String
		p.Error = errorMessage.String
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows]
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.MigrationJob, error) {
	var (
		job          models.MigrationJob
		status       string
		finishedAt   sql.NullTime
		errorMessage sql.NullString
	)

	err := s.Scan(
		&job.ID, &job.StartedAt, &finishedAt, &status, &job.DuplicateMode, &job.DryRun,
		&job.PlaylistsTotal, &job.PlaylistsDone, &job.SongsMatched, &job.SongsFailed, &job.SongsAdded,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.Error = errorMessage.String
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return &job, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
