package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/state"
	"golang.org/x/time/rate"
)

// MatchSource says where a match result came from.
type MatchSource int

const (
	FromRunCache MatchSource = iota
	FromState
	FromSearch
)

func (s MatchSource) String() string {
	switch s {
	case FromRunCache:
		return "run cache"
	case FromState:
		return "state"
	default:
		return "search"
	}
}

// Match is the outcome of matching one source track. An empty VideoID is a miss.
type Match struct {
	Key     TrackKey
	VideoID string
	Source  MatchSource
}

// Found reports whether the track matched.
func (m Match) Found() bool {
	return m.VideoID != ""
}

// Matcher resolves source tracks to destination video ids, consulting a run-scoped cache, then the persisted
// state, and only then the destination search.
type Matcher struct {
	dest     services.Destination
	state    *state.MigrationState
	cache    map[TrackKey]string
	policy   RetryPolicy
	limiter  *rate.Limiter
	logger   *log.Logger
	searches int
}

// NewMatcher creates a matcher that records into st. Searches are spaced at least searchDelay apart.
func NewMatcher(dest services.Destination, st *state.MigrationState, policy RetryPolicy, searchDelay time.Duration, logger *log.Logger) *Matcher {
	return &Matcher{
		dest:    dest,
		state:   st,
		cache:   make(map[TrackKey]string),
		policy:  policy,
		limiter: newPacer(searchDelay),
		logger:  logger,
	}
}

// newPacer returns a limiter admitting one event per d. The first event is never delayed.
func newPacer(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Searches returns how many network searches were made.
func (m *Matcher) Searches() int {
	return m.searches
}

// Lookup returns a cached result for key. A cached miss is returned as ("", true).
func (m *Matcher) Lookup(key TrackKey) (string, MatchSource, bool) {
	if id, ok := m.cache[key]; ok {
		return id, FromRunCache, true
	}

	if sm, ok := m.state.Lookup(key.String()); ok {
		id := sm.ID()
		m.cache[key] = id
		return id, FromState, true
	}
	return "", FromSearch, false
}

// Record stores a search outcome in both caches. A miss also becomes a failed song attributed to playlist.
func (m *Matcher) Record(key TrackKey, videoID string, track models.Track, playlist string, attempts int) {
	m.cache[key] = videoID

	if videoID != "" {
		m.state.RecordMatch(key.String(), state.Hit(videoID, track.ID, attempts))
		return
	}

	m.state.RecordMatch(key.String(), state.Miss(track.ID, attempts))
	m.state.AddFailure(state.FailedSong{
		Title:     track.Title,
		Artist:    track.ArtistNames(),
		Album:     track.Album,
		SpotifyID: track.ID,
		Playlist:  playlist,
	})
}

// Match resolves track, searching the destination on a cache miss and taking the first result.
//
// Search failures are recorded as misses. The only error returned is context cancellation, which is not cached.
func (m *Matcher) Match(ctx context.Context, track models.Track, playlist string) (Match, error) {
	key := DeriveKey(track)
	if id, src, ok := m.Lookup(key); ok {
		return Match{Key: key, VideoID: id, Source: src}, nil
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return Match{Key: key}, err
	}

	query := BuildSearchQuery(track)
	attempts := 0
	m.searches++

	results, err := RetryValue(ctx, m.policy, services.IsTransient,
		func(ctx context.Context, attempt int) ([]services.SearchResult, error) {
			attempts = attempt + 1
			return m.dest.SearchSongs(ctx, query)
		})

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Match{Key: key}, err
		}
		m.logger.Warn("search failed, recording miss", "query", query, "attempts", attempts, "error", err)
	}

	var videoID string
	if err == nil && len(results) > 0 {
		videoID = results[0].VideoID
	}

	m.Record(key, videoID, track, playlist, attempts)
	return Match{Key: key, VideoID: videoID, Source: FromSearch}, nil
}
