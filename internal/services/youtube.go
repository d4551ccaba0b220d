// YouTube Music [Destination] implementation
//
// Communicates with the FastAPI proxy server running on port 8080.
// The proxy wraps the ytmusicapi Python library and authenticates with the headers bundle named in X-Auth-File.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID    string          `json:"videoId"`
	Title      string          `json:"title"`
	Artists    []YouTubeArtist `json:"artists"`
	Album      *youtubeAlbum   `json:"album"`
	SetVideoID string          `json:"setVideoId,omitempty"`
}

// YouTubeService implements [Destination] for YouTube Music via proxy.
type YouTubeService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL string, client *http.Client) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &YouTubeService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Authenticate stores the headers bundle path sent with every request.
//
// Expects credentials["auth_file"] to name an existing file; a missing file is reported as [shared.ErrMissingAuthFile].
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	authFile := credentials["auth_file"]
	if authFile == "" {
		return fmt.Errorf("%w: missing auth_file in credentials", shared.ErrMissingCredentials)
	}

	if _, err := os.Stat(authFile); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrMissingAuthFile, authFile)
	}

	y.authFile = authFile
	return nil
}

// Health checks that the proxy is reachable.
func (y *YouTubeService) Health(ctx context.Context) error {
	if err := y.doRequest(ctx, "health", http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}

// doRequest sends body as JSON and decodes the response into result.
//
// Every failure is returned as an [*APIError] so callers can classify it.
func (y *YouTubeService) doRequest(ctx context.Context, op, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{
			Op:     op,
			Status: resp.StatusCode,
			Detail: errResp.Detail,
			Kind:   classifyStatus(resp.StatusCode, errResp.Detail),
		}
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("empty response body")
		}
		return &APIError{Op: op, Status: resp.StatusCode, Kind: KindMalformed, Err: err}
	}
	return nil
}

// SearchSongs searches the songs filter and returns results in the proxy's ranking order.
//
// Calls GET /api/search?q={query}&filter=songs on the proxy.
func (y *YouTubeService) SearchSongs(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := "/api/search?" + url.Values{"q": {query}, "filter": {"songs"}}.Encode()

	var tracks []YouTubeTrack
	if err := y.doRequest(ctx, "search", http.MethodGet, endpoint, nil, &tracks); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(tracks))
	for _, t := range tracks {
		if t.VideoID == "" {
			continue
		}
		r := SearchResult{VideoID: t.VideoID, Title: t.Title}
		for _, a := range t.Artists {
			r.Artists = append(r.Artists, a.Name)
		}
		if t.Album != nil {
			r.Album = t.Album.Name
		}
		results = append(results, r)
	}
	return results, nil
}

// LibraryPlaylists retrieves all playlists in the user's library.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YouTubeService) LibraryPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var ytPlaylists []struct {
		PlaylistID  string `json:"playlistId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Count       int    `json:"count"`
	}

	if err := y.doRequest(ctx, "library playlists", http.MethodGet, "/api/library/playlists", nil, &ytPlaylists); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(ytPlaylists))
	for i, ytp := range ytPlaylists {
		playlists[i] = models.Playlist{
			ID:          ytp.PlaylistID,
			Name:        ytp.Title,
			Description: ytp.Description,
			TrackCount:  ytp.Count,
		}
	}
	return playlists, nil
}

// PlaylistTrackIDs returns the video ids of every track in a playlist.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ytPlaylist struct {
		ID     string         `json:"id"`
		Tracks []YouTubeTrack `json:"tracks"`
	}

	endpoint := "/api/playlists/" + url.PathEscape(playlistID)
	if err := y.doRequest(ctx, "playlist tracks", http.MethodGet, endpoint, nil, &ytPlaylist); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(ytPlaylist.Tracks))
	for _, t := range ytPlaylist.Tracks {
		if t.VideoID != "" {
			ids = append(ids, t.VideoID)
		}
	}
	return ids, nil
}

// CreatePlaylist creates an empty playlist.
//
// Calls POST /api/playlists on the proxy.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	createReq := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{
		Title:         title,
		Description:   description,
		PrivacyStatus: strings.ToUpper(privacy),
	}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := y.doRequest(ctx, "create playlist", http.MethodPost, "/api/playlists", createReq, &createResp); err != nil {
		return "", err
	}

	if createResp.PlaylistID == "" {
		return "", &APIError{Op: "create playlist", Kind: KindMalformed, Err: fmt.Errorf("response missing playlist_id")}
	}
	return createResp.PlaylistID, nil
}

// AddPlaylistItems appends videos to a playlist.
//
// Calls POST /api/playlists/{id}/items on the proxy.
func (y *YouTubeService) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}

	addReq := struct {
		VideoIDs []string `json:"video_ids"`
	}{VideoIDs: videoIDs}

	endpoint := "/api/playlists/" + url.PathEscape(playlistID) + "/items"
	return y.doRequest(ctx, "add items", http.MethodPost, endpoint, addReq, nil)
}
