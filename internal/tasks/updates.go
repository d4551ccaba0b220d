package tasks

import (
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// ProgressUpdate represents a progress event during a migration.
//
// Used to send real-time updates to the CLI or TUI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadState Phase = iota
	FetchIndex
	FetchPlaylists
	StartPlaylist
	MatchTracks
	WritePlaylist
	FinishPlaylist
	Complete
)

func (p Phase) String() string {
	switch p {
	case LoadState:
		return "load_state"
	case FetchIndex:
		return "fetch_index"
	case FetchPlaylists:
		return "fetch_playlists"
	case StartPlaylist:
		return "start_playlist"
	case MatchTracks:
		return "match_tracks"
	case WritePlaylist:
		return "write_playlist"
	case FinishPlaylist:
		return "finish_playlist"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func loadStateUpdate(cached, failed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadState,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded state: %d cached songs, %d failed songs", cached, failed),
	}
}

func fetchIndexUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchIndex,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d existing playlists on YouTube Music", count),
	}
}

func fetchPlaylistsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d Spotify playlists", count),
	}
}

func startPlaylistUpdate(step, total int, name string, decision Decision) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%s)", step, total, name, decision),
	}
}

func matchTrackUpdate(step, total int, tr models.Track, m Match) ProgressUpdate {
	mark := "✓"
	if !m.Found() {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s %s - %s (%s)", mark, tr.ArtistNames(), tr.Title, m.Source),
		Data:    m,
	}
}

func writePlaylistUpdate(name string, count int, decision Decision) ProgressUpdate {
	verb := "Adding"
	if decision == DecisionCreate {
		verb = "Creating playlist with"
	}
	return ProgressUpdate{
		Phase:   WritePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s %d tracks: %s", verb, count, name),
	}
}

func finishPlaylistUpdate(step, total int, o PlaylistOutcome) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s: added %d, missing %d", step, total, o.Name, o.Added, o.Missing)
	switch {
	case o.Err != nil:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, o.Name, o.Err)
	case o.Decision == DecisionSkip:
		msg = fmt.Sprintf("[%d/%d] ⏭ %s: exists, skipped", step, total, o.Name)
	}
	return ProgressUpdate{
		Phase:   FinishPlaylist,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    o,
	}
}

func completeUpdate(s *RunSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Migration complete: %d cached songs, %d failed songs", s.CachedSongs, s.FailedSongs),
		Data:    s,
	}
}
