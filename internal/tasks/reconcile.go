package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"golang.org/x/time/rate"
)

// Decision is what the reconciler does with a source playlist.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionCreate
	DecisionMerge
	DecisionSkip
)

func (d Decision) String() string {
	switch d {
	case DecisionCreate:
		return "create"
	case DecisionMerge:
		return "merge"
	case DecisionSkip:
		return "skip"
	default:
		return "none"
	}
}

// ReconcileState is a step of the per-playlist state machine.
type ReconcileState int

const (
	NotStarted ReconcileState = iota
	CheckExisting
	Skip
	Merge
	Create
	Populated
)

func (s ReconcileState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case CheckExisting:
		return "check_existing"
	case Skip:
		return "skip"
	case Merge:
		return "merge"
	case Create:
		return "create"
	case Populated:
		return "populated"
	default:
		return ""
	}
}

// PlaylistIndex maps destination playlist names to ids. Lookups are exact and case-sensitive; when two
// destination playlists share a name the last one listed wins.
type PlaylistIndex struct {
	byName map[string]string
}

// NewPlaylistIndex builds an index from a destination library listing.
func NewPlaylistIndex(playlists []models.Playlist) *PlaylistIndex {
	idx := &PlaylistIndex{byName: make(map[string]string, len(playlists))}
	for _, p := range playlists {
		idx.Add(p.Name, p.ID)
	}
	return idx
}

// Lookup returns the id of the playlist named name.
func (i *PlaylistIndex) Lookup(name string) (string, bool) {
	id, ok := i.byName[name]
	return id, ok
}

// Add records a playlist, such as one created during this run.
func (i *PlaylistIndex) Add(name, id string) {
	if name == "" || id == "" {
		return
	}
	i.byName[name] = id
}

// Len returns the number of indexed names.
func (i *PlaylistIndex) Len() int {
	return len(i.byName)
}

// Plan carries one source playlist through the reconciler.
type Plan struct {
	Name          string
	Description   string
	State         ReconcileState
	Decision      Decision
	DestinationID string
	Existing      mapset.Set[string]
}

// Population summarizes [Reconciler.Populate].
type Population struct {
	Added          int
	AlreadyPresent int
	Created        bool
	Title          string
}

// ReconcilerOpts configures a [Reconciler].
type ReconcilerOpts struct {
	DuplicateMode string
	Privacy       string
	BatchSize     int
	NameMaxLength int
	AddDelay      time.Duration
	Retry         RetryPolicy
	DryRun        bool
}

// Reconciler decides between creating, merging into or skipping a destination playlist, then writes tracks.
type Reconciler struct {
	dest   services.Destination
	index  *PlaylistIndex
	opts   ReconcilerOpts
	pacer  *rate.Limiter
	logger *log.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler over index.
func NewReconciler(dest services.Destination, index *PlaylistIndex, opts ReconcilerOpts, logger *log.Logger) *Reconciler {
	if opts.BatchSize < 1 || opts.BatchSize > shared.MaxBatchSize {
		opts.BatchSize = shared.MaxBatchSize
	}
	if opts.NameMaxLength < 1 || opts.NameMaxLength > shared.MaxPlaylistTitle {
		opts.NameMaxLength = shared.MaxPlaylistTitle
	}
	if opts.Privacy == "" {
		opts.Privacy = "PRIVATE"
	}
	return &Reconciler{
		dest:   dest,
		index:  index,
		opts:   opts,
		pacer:  newPacer(opts.AddDelay),
		logger: logger,
		now:    time.Now,
	}
}

// Check runs CHECK_EXISTING for a source playlist. In merge mode it also loads the existing video ids.
func (r *Reconciler) Check(ctx context.Context, name, description string) *Plan {
	plan := &Plan{Name: name, Description: description, State: CheckExisting, Existing: mapset.NewThreadUnsafeSet[string]()}

	id, ok := r.index.Lookup(name)
	if !ok {
		plan.State, plan.Decision = Create, DecisionCreate
		return plan
	}

	plan.DestinationID = id
	if r.opts.DuplicateMode == shared.DuplicateSkip {
		plan.State, plan.Decision = Skip, DecisionSkip
		return plan
	}

	plan.State, plan.Decision = Merge, DecisionMerge
	ids, err := RetryValue(ctx, r.opts.Retry, services.IsTransient, func(ctx context.Context, _ int) ([]string, error) {
		return r.dest.PlaylistTrackIDs(ctx, id)
	})
	if err != nil {
		r.logger.Warn("could not read existing playlist tracks, merging without them", "playlist", name, "id", id, "error", err)
		return plan
	}

	plan.Existing.Append(ids...)
	return plan
}

// Populate writes videoIDs to the planned playlist, creating it first when needed. Ids already in the playlist
// or repeated within videoIDs are dropped. Nothing is created when there is nothing to add.
func (r *Reconciler) Populate(ctx context.Context, plan *Plan, videoIDs []string) (Population, error) {
	var pop Population
	if plan.Decision == DecisionSkip {
		return pop, nil
	}

	seen := plan.Existing.Clone()
	toAdd := make([]string, 0, len(videoIDs))
	for _, id := range videoIDs {
		if id == "" {
			continue
		}
		if plan.Existing.Contains(id) {
			pop.AlreadyPresent++
			continue
		}
		if seen.Add(id) {
			toAdd = append(toAdd, id)
		}
	}

	if len(toAdd) == 0 {
		plan.State = Populated
		return pop, nil
	}

	if r.opts.DryRun {
		pop.Added = len(toAdd)
		pop.Created = plan.Decision == DecisionCreate
		plan.State = Populated
		return pop, nil
	}

	if plan.Decision == DecisionCreate {
		id, title, err := r.createPlaylist(ctx, plan.Name, plan.Description)
		if err != nil {
			return pop, err
		}
		plan.DestinationID = id
		pop.Created, pop.Title = true, title
		r.index.Add(plan.Name, id)
	}

	for start := 0; start < len(toAdd); start += r.opts.BatchSize {
		if start > 0 {
			if err := r.pacer.Wait(ctx); err != nil {
				return pop, err
			}
		}

		batch := toAdd[start:min(start+r.opts.BatchSize, len(toAdd))]
		err := Retry(ctx, r.opts.Retry, services.IsTransient, func(ctx context.Context, _ int) error {
			return r.dest.AddPlaylistItems(ctx, plan.DestinationID, batch)
		})
		if err != nil {
			return pop, fmt.Errorf("%w: %s: %w", shared.ErrAddTracks, plan.Name, err)
		}

		pop.Added += len(batch)
		plan.Existing.Append(batch...)
	}

	plan.State = Populated
	return pop, nil
}

// createPlaylist creates a playlist, retrying transient errors and degrading the name and description on
// rejected input. If every attempt fails it looks for a playlist that was created anyway.
func (r *Reconciler) createPlaylist(ctx context.Context, name, description string) (string, string, error) {
	title := TruncateName(name, r.opts.NameMaxLength)
	desc := description
	tried := []string{title}
	rejections := 0

	retryable := func(err error) bool { return services.IsTransient(err) || services.IsRejected(err) }
	id, err := RetryValue(ctx, r.opts.Retry, retryable, func(ctx context.Context, attempt int) (string, error) {
		id, err := r.dest.CreatePlaylist(ctx, title, desc, r.opts.Privacy)
		if services.IsRejected(err) {
			rejections++
			desc = ""
			if rejections == 1 {
				title = SanitizeName(title, r.now())
			} else {
				title = FallbackName(r.now())
			}
			tried = append(tried, title)
			r.logger.Warn("playlist rejected, retrying with a safer name", "playlist", name, "next", title, "attempt", attempt+1)
		}
		return id, err
	})
	if err == nil {
		return id, title, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", "", err
	}

	playlists, listErr := r.dest.LibraryPlaylists(ctx)
	if listErr == nil {
		found := NewPlaylistIndex(playlists)
		for _, t := range tried {
			if id, ok := found.Lookup(t); ok {
				r.logger.Warn("create reported failure but playlist exists, using it", "playlist", t, "id", id)
				return id, t, nil
			}
		}
	}

	return "", "", fmt.Errorf("%w: %q: %w", shared.ErrPlaylistCreate, name, err)
}

// TruncateName shortens name to at most limit runes.
func TruncateName(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	return string([]rune(name)[:limit])
}

// SanitizeName keeps letters, digits, spaces, '-' and '_'. An empty result becomes [FallbackName].
func SanitizeName(name string, now time.Time) string {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, name))

	if cleaned == "" {
		return FallbackName(now)
	}
	return cleaned
}

// FallbackName is the timestamped name used when nothing of the original name is usable.
func FallbackName(now time.Time) string {
	return "Imported Playlist " + now.Format("2006-01-02 15:04")
}
