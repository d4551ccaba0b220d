package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Store reads and writes a [MigrationState] as indented JSON.
type Store struct {
	path   string
	logger *log.Logger
}

// NewStore creates a store for the file at path.
func NewStore(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. It never fails: a missing, unreadable, malformed or unsupported file yields an empty
// state and, except for a missing file, a warning.
func (s *Store) Load() *MigrationState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("could not read state file, starting fresh", "path", s.path, "error", err)
		}
		return New()
	}

	st, err := Decode(data)
	if err != nil {
		s.logger.Warn("could not load state file, starting fresh", "path", s.path, "error", err)
		return New()
	}

	s.logger.Debug("loaded state", "path", s.path, "version", st.Version, "cached", len(st.SongCache))
	return st
}

// Save stamps LastUpdated and replaces the state file atomically. On error the previous file is left untouched.
func (s *Store) Save(st *MigrationState) error {
	st.Version = CurrentVersion
	st.LastUpdated = Now()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Reset deletes the state file. A missing file is not an error.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// envelope is decoded first to pick the upgrade path.
type envelope struct {
	Version            string                     `json:"version"`
	LastUpdated        Timestamp                  `json:"last_updated"`
	SongCache          map[string]json.RawMessage `json:"song_cache"`
	CompletedPlaylists []string                   `json:"completed_playlists"`
	FailedSongs        []FailedSong               `json:"failed_songs"`
}

// Decode parses a state file of any supported schema version into the current schema.
//
// Files without a version are treated as 1.0.0, whose song_cache values were a bare video id or null.
func Decode(data []byte) (*MigrationState, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStateCorrupt, err)
	}

	if env.Version == "" {
		env.Version = "1.0.0"
	}

	major, err := majorVersion(env.Version)
	if err != nil {
		return nil, err
	}

	st := New()
	st.LastUpdated = env.LastUpdated
	if env.CompletedPlaylists != nil {
		st.CompletedPlaylists = env.CompletedPlaylists
	}
	if env.FailedSongs != nil {
		st.FailedSongs = env.FailedSongs
	}

	for key, raw := range env.SongCache {
		var m SongMatch
		switch major {
		case 1:
			m, err = upgradeV1Match(raw)
		case 2:
			err = json.Unmarshal(raw, &m)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: song_cache[%q]: %v", shared.ErrStateCorrupt, key, err)
		}
		st.SongCache[key] = m
	}
	return st, nil
}

func majorVersion(v string) (int, error) {
	head, _, _ := strings.Cut(v, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", shared.ErrStateVersion, v)
	}
	if major < 1 || major > 2 {
		return 0, fmt.Errorf("%w: %q", shared.ErrStateVersion, v)
	}
	return major, nil
}

// upgradeV1Match converts a 1.x cache value, which may already be an object.
func upgradeV1Match(raw json.RawMessage) (SongMatch, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(raw, []byte("null")):
		return SongMatch{Attempts: 1}, nil
	case len(raw) > 0 && raw[0] == '"':
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return SongMatch{}, err
		}
		if id == "" {
			return SongMatch{Attempts: 1}, nil
		}
		return SongMatch{VideoID: &id, Found: true, Attempts: 1}, nil
	default:
		var m SongMatch
		err := json.Unmarshal(raw, &m)
		return m, err
	}
}
