// package services defines the interfaces the migration engine uses to talk to music providers
//
// Spotify (source), YouTube Music via proxy (destination)
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Service defines what every music provider supports.
type Service interface {
	// Authenticate configures the provider with the given credentials.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Name returns the name of the service (e.g., "Spotify", "YouTube Music")
	Name() string
}

// Source is a provider that playlists are read from.
type Source interface {
	Service

	// Playlists lists the current user's playlists in the provider's order.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks lists every track of a playlist. Entries without a track id are dropped.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// LikedTracks lists the user's saved tracks.
	LikedTracks(ctx context.Context) ([]models.Track, error)
}

// Destination is a provider that playlists are written to.
type Destination interface {
	Service

	// SearchSongs runs a free-text song search. An empty slice means no match.
	SearchSongs(ctx context.Context, query string) ([]SearchResult, error)

	// LibraryPlaylists lists playlists in the user's library.
	LibraryPlaylists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTrackIDs lists the video ids already in a playlist.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// CreatePlaylist creates an empty playlist and returns its id.
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)

	// AddPlaylistItems appends video ids to a playlist.
	AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error
}

// SearchResult is a single song hit from a destination search.
type SearchResult struct {
	VideoID string
	Title   string
	Artists []string
	Album   string
}

// ErrorKind classifies an [APIError].
type ErrorKind int

const (
	// KindStatus is a non-2xx response that is neither throttling nor rejected input.
	KindStatus ErrorKind = iota
	// KindTransient is a 429 or 5xx response.
	KindTransient
	// KindMalformed is a 2xx response whose body could not be decoded, which the proxy returns when throttled.
	KindMalformed
	// KindNetwork is a transport failure before any response arrived.
	KindNetwork
	// KindRejected is a 400 whose detail reports an invalid argument.
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindMalformed:
		return "malformed"
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	default:
		return "status"
	}
}

// APIError is returned by destination calls.
type APIError struct {
	Op     string
	Status int
	Detail string
	Kind   ErrorKind
	Err    error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, shared.ErrAPIRequest)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrAPIRequest}
	}
	return []error{shared.ErrAPIRequest, e.Err}
}

// Temporary reports whether retrying the same call may succeed.
func (e *APIError) Temporary() bool {
	switch e.Kind {
	case KindTransient, KindMalformed, KindNetwork:
		return true
	}
	return false
}

// classifyStatus returns the error kind for a non-2xx response.
func classifyStatus(status int, detail string) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return KindTransient
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(detail), "invalid argument"):
		return KindRejected
	}
	return KindStatus
}

// IsTransient reports whether err is a destination failure worth retrying.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Temporary()
}

// IsRejected reports whether the destination refused the request content.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindRejected
}
