// package models defines the data model for the playlist migration tool
package models

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Track is a song read from the source service. It is immutable once fetched.
type Track struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album,omitempty"`
}

// ArtistNames joins the track's artists with ", ".
func (t Track) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// Playlist holds playlist metadata from either service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
}

// JobStatus is the lifecycle state of a [MigrationJob].
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// MigrationJob is one migrate invocation recorded in the run journal.
type MigrationJob struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Status         JobStatus
	DuplicateMode  string
	DryRun         bool
	PlaylistsTotal int
	PlaylistsDone  int
	SongsMatched   int
	SongsFailed    int
	SongsAdded     int
	Error          string
	Playlists      []JobPlaylist
}

// Validate checks the job's required fields.
func (j *MigrationJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if j.StartedAt.IsZero() {
		return fmt.Errorf("job start time is required")
	}
	switch j.Status {
	case JobRunning, JobCompleted, JobFailed:
	default:
		return fmt.Errorf("unknown job status %q", j.Status)
	}
	return nil
}

// JobPlaylist is the outcome of one source playlist within a job.
type JobPlaylist struct {
	ID            string
	JobID         string
	Sequence      int
	SourceName    string
	DestinationID string
	Action        string
	Matched       int
	Failed        int
	Added         int
	Error         string
	RecordedAt    time.Time
}

// Repository defines read/write access for journal records keyed by string ids.
type Repository[T any] interface {
	Create(ctx context.Context, model T) error    // Create inserts a new record
	Get(ctx context.Context, id string) (T, error) // Get retrieves a record by its ID
	List(ctx context.Context, limit int) ([]T, error)
}
