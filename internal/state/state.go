// package state holds the persisted match cache that makes migrations resumable
package state

import (
	"slices"
	"strings"
	"time"
)

// CurrentVersion is the schema version written by [Store.Save].
const CurrentVersion = "2.0.0"

// isoLayout is the timezone-less layout used in state files written by earlier releases.
const isoLayout = "2006-01-02T15:04:05.999999"

// Timestamp is a [time.Time] that reads both RFC 3339 and timezone-less ISO 8601 strings and writes the latter in
// local time. The zero value is encoded as null.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a [Timestamp].
func Now() Timestamp {
	return Timestamp{time.Now()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Local().Format(isoLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}

	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}

	v, err := time.ParseInLocation(isoLayout, s, time.Local)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// SongMatch is the cached search outcome for one track key. A nil VideoID records a miss.
type SongMatch struct {
	VideoID      *string   `json:"videoId"`
	Found        bool      `json:"found"`
	SpotifyID    string    `json:"spotify_id,omitempty"`
	LastSearched Timestamp `json:"last_searched"`
	Attempts     int       `json:"attempts"`
}

// Hit returns a found match for videoID.
func Hit(videoID, spotifyID string, attempts int) SongMatch {
	return SongMatch{VideoID: &videoID, Found: true, SpotifyID: spotifyID, LastSearched: Now(), Attempts: attempts}
}

// Miss returns a recorded miss.
func Miss(spotifyID string, attempts int) SongMatch {
	return SongMatch{SpotifyID: spotifyID, LastSearched: Now(), Attempts: attempts}
}

// ID returns the matched video id, or "" for a miss.
func (m SongMatch) ID() string {
	if m.VideoID == nil || !m.Found {
		return ""
	}
	return *m.VideoID
}

// FailedSong is a track that could not be found on the destination.
type FailedSong struct {
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	SpotifyID string    `json:"spotify_id,omitempty"`
	Playlist  string    `json:"playlist"`
	FailedAt  Timestamp `json:"failed_at"`
}

// MigrationState is the persisted record of every search performed, every source playlist finished and every
// track that could not be matched. Entries are only ever added.
type MigrationState struct {
	Version            string               `json:"version"`
	LastUpdated        Timestamp            `json:"last_updated"`
	SongCache          map[string]SongMatch `json:"song_cache"`
	CompletedPlaylists []string             `json:"completed_playlists"`
	FailedSongs        []FailedSong         `json:"failed_songs"`
}

// New returns an empty state at the current schema version.
func New() *MigrationState {
	return &MigrationState{
		Version:            CurrentVersion,
		SongCache:          make(map[string]SongMatch),
		CompletedPlaylists: []string{},
		FailedSongs:        []FailedSong{},
	}
}

// Lookup returns the cached outcome for key.
func (s *MigrationState) Lookup(key string) (SongMatch, bool) {
	m, ok := s.SongCache[key]
	return m, ok
}

// RecordMatch stores the outcome for key.
func (s *MigrationState) RecordMatch(key string, m SongMatch) {
	if s.SongCache == nil {
		s.SongCache = make(map[string]SongMatch)
	}
	s.SongCache[key] = m
}

// AddFailure appends a failed song, stamping it when FailedAt is unset.
func (s *MigrationState) AddFailure(f FailedSong) {
	if f.FailedAt.IsZero() {
		f.FailedAt = Now()
	}
	s.FailedSongs = append(s.FailedSongs, f)
}

// MarkCompleted records a finished source playlist once.
func (s *MigrationState) MarkCompleted(playlistID string) {
	if playlistID == "" || s.IsCompleted(playlistID) {
		return
	}
	s.CompletedPlaylists = append(s.CompletedPlaylists, playlistID)
}

// IsCompleted reports whether the source playlist finished in an earlier pass.
func (s *MigrationState) IsCompleted(playlistID string) bool {
	return slices.Contains(s.CompletedPlaylists, playlistID)
}

// Stats summarizes the cache.
type Stats struct {
	Cached    int
	Found     int
	Missed    int
	Failed    int
	Completed int
}

// Stats counts cache entries and failures.
func (s *MigrationState) Stats() Stats {
	st := Stats{
		Cached:    len(s.SongCache),
		Failed:    len(s.FailedSongs),
		Completed: len(s.CompletedPlaylists),
	}
	for _, m := range s.SongCache {
		if m.Found {
			st.Found++
		} else {
			st.Missed++
		}
	}
	return st
}
