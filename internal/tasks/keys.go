package tasks

import (
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// TrackKey identifies a song for caching purposes. Different source tracks with the same normalized title and
// artists share a key.
type TrackKey struct {
	Title   string
	Artists string
}

// String returns the form used as the state file's song_cache key.
func (k TrackKey) String() string {
	return k.Title + "||" + k.Artists
}

// DeriveKey trims and lowercases the title and the comma-joined artists.
func DeriveKey(t models.Track) TrackKey {
	return TrackKey{
		Title:   strings.ToLower(strings.TrimSpace(t.Title)),
		Artists: strings.ToLower(strings.TrimSpace(t.ArtistNames())),
	}
}

// BuildSearchQuery joins title, artists and album into a free-text query.
func BuildSearchQuery(t models.Track) string {
	return strings.TrimSpace(t.Title + " " + t.ArtistNames() + " " + t.Album)
}
