package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
)

const (
	// LikedPlaylistID stands in for the saved-tracks collection in completed_playlists.
	LikedPlaylistID = "liked_songs"

	importedSuffix   = " (imported from Spotify)"
	likedDescription = "Auto-imported from Spotify Liked Songs"
)

// StateStore loads and saves the migration state.
type StateStore interface {
	Load() *state.MigrationState
	Save(st *state.MigrationState) error
	Path() string
}

// Journal records job and playlist outcomes. Journal failures are logged, never fatal.
type Journal interface {
	StartJob(ctx context.Context, job *models.MigrationJob) error
	RecordPlaylist(ctx context.Context, jobID string, seq int, outcome PlaylistOutcome) error
	FinishJob(ctx context.Context, jobID string, summary *RunSummary, runErr error) error
}

// EngineOpts configures a [MigrationEngine].
type EngineOpts struct {
	DuplicateMode     string
	LikedPlaylistName string
	IncludeLiked      bool
	Only              []string // source playlist names or ids; empty means all
	DryRun            bool
	Privacy           string
	BatchSize         int
	NameMaxLength     int
	SearchDelay       time.Duration
	AddDelay          time.Duration
	Retry             RetryPolicy
	FailedSongsFile   string
}

// OptsFromConfig maps the [migration] config section onto engine options.
func OptsFromConfig(cfg shared.MigrationConfig) EngineOpts {
	return EngineOpts{
		DuplicateMode:     cfg.DuplicateMode,
		LikedPlaylistName: cfg.LikedPlaylistName,
		IncludeLiked:      true,
		Privacy:           cfg.Privacy,
		BatchSize:         cfg.BatchSize,
		NameMaxLength:     cfg.NameMaxLength,
		SearchDelay:       cfg.SearchDelay.Duration,
		AddDelay:          cfg.AddDelay.Duration,
		Retry:             RetryPolicy{Attempts: cfg.MaxRetries, Base: cfg.RetryBase.Duration},
		FailedSongsFile:   cfg.FailedSongsFile,
	}
}

// PlaylistOutcome is the result of migrating one source playlist.
type PlaylistOutcome struct {
	SourceID       string
	Name           string
	Decision       Decision
	DestinationID  string
	Total          int
	Matched        int
	Missing        int
	Added          int
	AlreadyPresent int
	Created        bool
	Err            error
}

// RunSummary aggregates a [MigrationEngine.Run].
type RunSummary struct {
	JobID         string
	DryRun        bool
	Started       time.Time
	Duration      time.Duration
	Playlists     int
	Created       int
	Merged        int
	Skipped       int
	Failed        int
	TracksMatched int
	TracksMissing int
	TracksAdded   int
	Searches      int
	CachedSongs   int
	FailedSongs   int
	Outcomes      []PlaylistOutcome
}

func (s *RunSummary) add(o PlaylistOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	s.Playlists++
	s.TracksMatched += o.Matched
	s.TracksMissing += o.Missing
	s.TracksAdded += o.Added

	switch {
	case o.Err != nil:
		s.Failed++
	case o.Decision == DecisionSkip:
		s.Skipped++
	case o.Created:
		s.Created++
	case o.Decision == DecisionMerge:
		s.Merged++
	}
}

// MigrationEngine drives a full Spotify → YouTube Music pass: every source playlist in listing order, then the
// liked songs, sequentially.
type MigrationEngine struct {
	source  services.Source
	dest    services.Destination
	store   StateStore
	journal Journal
	opts    EngineOpts
	logger  *log.Logger
}

// NewMigrationEngine creates an engine. A nil logger discards output.
func NewMigrationEngine(source services.Source, dest services.Destination, store StateStore, opts EngineOpts, logger *log.Logger) *MigrationEngine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if opts.LikedPlaylistName == "" {
		opts.LikedPlaylistName = "Spotify Liked Songs"
	}
	if opts.DuplicateMode == "" {
		opts.DuplicateMode = shared.DuplicateMerge
	}
	return &MigrationEngine{source: source, dest: dest, store: store, opts: opts, logger: logger}
}

// WithJournal attaches a run journal.
func (e *MigrationEngine) WithJournal(j Journal) *MigrationEngine {
	e.journal = j
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *MigrationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs the migration. Per-track and per-playlist failures are recorded and the run continues; a
// playlist that could not be created, a failed source listing and cancellation end the run early. State and the
// failure report are saved after every playlist.
func (e *MigrationEngine) Run(ctx context.Context, progress chan<- ProgressUpdate) (*RunSummary, error) {
	if e.source == nil || e.dest == nil {
		return nil, fmt.Errorf("%w: services not initialized", shared.ErrServiceUnavailable)
	}

	summary := &RunSummary{JobID: shared.GenerateID(), DryRun: e.opts.DryRun, Started: time.Now()}

	st := e.store.Load()
	stats := st.Stats()
	if !st.LastUpdated.IsZero() {
		e.logger.Info("resuming from previous migration", "last_updated", st.LastUpdated.Format(time.DateTime), "cached", stats.Cached, "failed", stats.Failed)
	}
	e.sendProgress(progress, loadStateUpdate(stats.Cached, stats.Failed))

	index := e.fetchIndex(ctx)
	e.sendProgress(progress, fetchIndexUpdate(index.Len()))

	playlists, err := e.source.Playlists(ctx)
	if err != nil {
		return summary, fmt.Errorf("%w: listing source playlists: %w", shared.ErrAPIRequest, err)
	}
	playlists = e.filter(playlists)
	e.sendProgress(progress, fetchPlaylistsUpdate(len(playlists)))

	total := len(playlists)
	if e.opts.IncludeLiked {
		total++
	}

	e.startJob(ctx, summary, total)

	matcher := NewMatcher(e.dest, st, e.opts.Retry, e.opts.SearchDelay, e.logger)
	reconciler := NewReconciler(e.dest, index, ReconcilerOpts{
		DuplicateMode: e.opts.DuplicateMode,
		Privacy:       e.opts.Privacy,
		BatchSize:     e.opts.BatchSize,
		NameMaxLength: e.opts.NameMaxLength,
		AddDelay:      e.opts.AddDelay,
		Retry:         e.opts.Retry,
		DryRun:        e.opts.DryRun,
	}, e.logger)

	var runErr error
	step := 0
	for _, pl := range playlists {
		step++
		description := pl.Description + importedSuffix
		fetch := func(ctx context.Context) ([]models.Track, error) { return e.source.PlaylistTracks(ctx, pl.ID) }

		outcome := e.migratePlaylist(ctx, progress, step, total, matcher, reconciler, pl.ID, pl.Name, description, fetch)
		if runErr = e.finishPlaylist(ctx, progress, st, summary, step, total, outcome); runErr != nil {
			break
		}
	}

	if runErr == nil && e.opts.IncludeLiked {
		step++
		outcome := e.migratePlaylist(ctx, progress, step, total, matcher, reconciler,
			LikedPlaylistID, e.opts.LikedPlaylistName, likedDescription, e.source.LikedTracks)
		runErr = e.finishPlaylist(ctx, progress, st, summary, step, total, outcome)
	}

	e.persist(st)

	stats = st.Stats()
	summary.CachedSongs = stats.Cached
	summary.FailedSongs = stats.Failed
	summary.Searches = matcher.Searches()
	summary.Duration = time.Since(summary.Started)

	e.finishJob(summary, runErr)
	e.sendProgress(progress, completeUpdate(summary))
	return summary, runErr
}

// fetchIndex lists destination playlists once. Failure degrades to an empty index.
func (e *MigrationEngine) fetchIndex(ctx context.Context) *PlaylistIndex {
	playlists, err := RetryValue(ctx, e.opts.Retry, services.IsTransient, func(ctx context.Context, _ int) ([]models.Playlist, error) {
		return e.dest.LibraryPlaylists(ctx)
	})
	if err != nil {
		e.logger.Warn("could not list YouTube Music playlists, duplicate detection disabled for existing playlists", "error", err)
		return NewPlaylistIndex(nil)
	}
	return NewPlaylistIndex(playlists)
}

func (e *MigrationEngine) filter(playlists []models.Playlist) []models.Playlist {
	if len(e.opts.Only) == 0 {
		return playlists
	}
	return slices.DeleteFunc(playlists, func(p models.Playlist) bool {
		return !slices.Contains(e.opts.Only, p.Name) && !slices.Contains(e.opts.Only, p.ID)
	})
}

// migratePlaylist runs the reconciler state machine and track matching for one source playlist.
func (e *MigrationEngine) migratePlaylist(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	step, total int,
	matcher *Matcher,
	reconciler *Reconciler,
	sourceID, name, description string,
	fetch func(context.Context) ([]models.Track, error),
) PlaylistOutcome {
	logger := shared.WithLogger(e.logger, "playlist", name)
	outcome := PlaylistOutcome{SourceID: sourceID, Name: name}

	plan := reconciler.Check(ctx, name, description)
	outcome.Decision = plan.Decision
	outcome.DestinationID = plan.DestinationID
	e.sendProgress(progress, startPlaylistUpdate(step, total, name, plan.Decision))

	if plan.Decision == DecisionSkip {
		logger.Info("playlist exists, skipping", "id", plan.DestinationID)
		return outcome
	}
	if plan.Decision == DecisionMerge {
		logger.Info("playlist exists, merging new songs", "id", plan.DestinationID, "existing", plan.Existing.Cardinality())
	}

	tracks, err := fetch(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("fetching tracks: %w", err)
		return outcome
	}
	outcome.Total = len(tracks)
	logger.Info("matching tracks", "tracks", len(tracks))

	videoIDs := make([]string, 0, len(tracks))
	for i, track := range tracks {
		m, err := matcher.Match(ctx, track, name)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		e.sendProgress(progress, matchTrackUpdate(i+1, len(tracks), track, m))

		if !m.Found() {
			outcome.Missing++
			logger.Debug("no match", "title", track.Title, "artists", track.ArtistNames(), "source", m.Source)
			continue
		}
		outcome.Matched++
		videoIDs = append(videoIDs, m.VideoID)
	}

	if len(videoIDs) == 0 {
		logger.Info("no new songs to add")
		return outcome
	}

	e.sendProgress(progress, writePlaylistUpdate(name, len(videoIDs), plan.Decision))
	pop, err := reconciler.Populate(ctx, plan, videoIDs)
	outcome.Added = pop.Added
	outcome.AlreadyPresent = pop.AlreadyPresent
	outcome.Created = pop.Created
	outcome.DestinationID = plan.DestinationID
	if err != nil {
		outcome.Err = err
		return outcome
	}

	logger.Info("playlist done", "id", plan.DestinationID, "added", pop.Added, "already_present", pop.AlreadyPresent, "missing", outcome.Missing, "dry_run", e.opts.DryRun)
	return outcome
}

// finishPlaylist records the outcome, persists state and reports whether the run must stop.
func (e *MigrationEngine) finishPlaylist(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	st *state.MigrationState,
	summary *RunSummary,
	step, total int,
	outcome PlaylistOutcome,
) error {
	summary.add(outcome)
	if outcome.Err == nil {
		st.MarkCompleted(outcome.SourceID)
	} else {
		e.logger.Error("playlist failed", "playlist", outcome.Name, "error", outcome.Err)
	}

	e.persist(st)
	e.recordPlaylist(ctx, summary.JobID, step, outcome)
	e.sendProgress(progress, finishPlaylistUpdate(step, total, outcome))

	switch {
	case errors.Is(outcome.Err, shared.ErrPlaylistCreate):
		return outcome.Err
	case errors.Is(outcome.Err, context.Canceled), errors.Is(outcome.Err, context.DeadlineExceeded):
		return outcome.Err
	}
	return nil
}

// persist saves state and rewrites the failure report. Failures are warnings.
func (e *MigrationEngine) persist(st *state.MigrationState) {
	if err := e.store.Save(st); err != nil {
		e.logger.Warn("could not save state file", "path", e.store.Path(), "error", err)
	}
	if e.opts.FailedSongsFile == "" {
		return
	}
	if err := formatter.WriteFailureReport(e.opts.FailedSongsFile, st.FailedSongs); err != nil {
		e.logger.Warn("could not write failure report", "path", e.opts.FailedSongsFile, "error", err)
	}
}

func (e *MigrationEngine) startJob(ctx context.Context, summary *RunSummary, total int) {
	if e.journal == nil {
		return
	}
	job := &models.MigrationJob{
		ID:             summary.JobID,
		StartedAt:      summary.Started,
		Status:         models.JobRunning,
		DuplicateMode:  e.opts.DuplicateMode,
		DryRun:         e.opts.DryRun,
		PlaylistsTotal: total,
	}
	if err := e.journal.StartJob(ctx, job); err != nil {
		e.logger.Warn("could not record job", "error", err)
	}
}

func (e *MigrationEngine) recordPlaylist(ctx context.Context, jobID string, seq int, outcome PlaylistOutcome) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordPlaylist(context.WithoutCancel(ctx), jobID, seq, outcome); err != nil {
		e.logger.Warn("could not record playlist outcome", "playlist", outcome.Name, "error", err)
	}
}

func (e *MigrationEngine) finishJob(summary *RunSummary, runErr error) {
	if e.journal == nil {
		return
	}
	if err := e.journal.FinishJob(context.Background(), summary.JobID, summary, runErr); err != nil {
		e.logger.Warn("could not finish job record", "error", err)
	}
}
