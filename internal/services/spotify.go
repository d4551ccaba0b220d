// Spotify API implementation of [Source]
//
// Pagination and response types come from github.com/zmb3/spotify/v2; authentication is a plain [oauth2.Config].
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	defaultSpotifyRedirect = "http://127.0.0.1:8888/callback"
	spotifyPageSize        = 50
)

// SpotifyScopes are the read-only scopes the migration needs.
var SpotifyScopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyAPIURL points the client at a different Web API root. Used by tests.
func WithSpotifyAPIURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.apiURL = u }
}

// WithSpotifyEndpoint overrides the OAuth endpoints.
func WithSpotifyEndpoint(e oauth2.Endpoint) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint = e }
}

// SpotifyService implements [Source] for the Spotify Web API.
type SpotifyService struct {
	config *oauth2.Config
	apiURL string

	mu     sync.Mutex
	source oauth2.TokenSource
	client *spotify.Client
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultSpotifyRedirect
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// RedirectURL returns the configured OAuth callback.
func (s *SpotifyService) RedirectURL() string {
	return s.config.RedirectURL
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Authenticate builds the API client from a stored token or an authorization code.
//
// Accepts "access_token" (with optional "refresh_token" and RFC 3339 "expiry") or "auth_code".
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	var token *oauth2.Token
	switch {
	case credentials["access_token"] != "":
		token = &oauth2.Token{
			AccessToken:  credentials["access_token"],
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		}
		if exp := credentials["expiry"]; exp != "" {
			t, err := time.Parse(time.RFC3339, exp)
			if err != nil {
				return fmt.Errorf("%w: bad expiry %q", shared.ErrInvalidCredentials, exp)
			}
			token.Expiry = t
		}
	case credentials["auth_code"] != "":
		t, err := s.Exchange(ctx, credentials["auth_code"])
		if err != nil {
			return err
		}
		token = t
	default:
		return fmt.Errorf("%w: run 'ytmigrate auth spotify' first", shared.ErrNotAuthenticated)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = oauth2.ReuseTokenSource(token, s.config.TokenSource(ctx, token))
	httpClient := oauth2.NewClient(ctx, s.source)

	var opts []spotify.ClientOption
	if s.apiURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.apiURL))
	}
	s.client = spotify.New(httpClient, opts...)
	return nil
}

// Token returns the current token, refreshing it if it has expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()

	if src == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return src.Token()
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.client, nil
}

// Playlists retrieves all playlists for the authenticated user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := client.CurrentUsersPlaylists(ctx, spotify.Limit(spotifyPageSize))
	if err != nil {
		return nil, fmt.Errorf("spotify playlists: %w", err)
	}

	var playlists []models.Playlist
	for {
		for _, p := range page.Playlists {
			playlists = append(playlists, models.Playlist{
				ID:          string(p.ID),
				Name:        p.Name,
				Description: p.Description,
				TrackCount:  int(p.Tracks.Total),
			})
		}

		if done, err := endOfPages(client.NextPage(ctx, page)); err != nil {
			return nil, fmt.Errorf("spotify playlists: %w", err)
		} else if done {
			return playlists, nil
		}
	}
}

// PlaylistTracks retrieves every track of a playlist. Episodes and local files without an id are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(100))
	if err != nil {
		return nil, fmt.Errorf("spotify playlist %s: %w", playlistID, err)
	}

	var tracks []models.Track
	for {
		for _, item := range page.Items {
			if t := item.Track.Track; t != nil && t.ID != "" {
				tracks = append(tracks, convertTrack(t))
			}
		}

		if done, err := endOfPages(client.NextPage(ctx, page)); err != nil {
			return nil, fmt.Errorf("spotify playlist %s: %w", playlistID, err)
		} else if done {
			return tracks, nil
		}
	}
}

// LikedTracks retrieves the user's saved tracks.
func (s *SpotifyService) LikedTracks(ctx context.Context) ([]models.Track, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := client.CurrentUsersTracks(ctx, spotify.Limit(spotifyPageSize))
	if err != nil {
		return nil, fmt.Errorf("spotify saved tracks: %w", err)
	}

	var tracks []models.Track
	for {
		for i := range page.Tracks {
			if t := &page.Tracks[i].FullTrack; t.ID != "" {
				tracks = append(tracks, convertTrack(t))
			}
		}

		if done, err := endOfPages(client.NextPage(ctx, page)); err != nil {
			return nil, fmt.Errorf("spotify saved tracks: %w", err)
		} else if done {
			return tracks, nil
		}
	}
}

// endOfPages reports whether err marks the end of a listing rather than a failure.
func endOfPages(err error) (bool, error) {
	if errors.Is(err, spotify.ErrNoMorePages) {
		return true, nil
	}
	return false, err
}

func convertTrack(t *spotify.FullTrack) models.Track {
	track := models.Track{
		ID:    string(t.ID),
		Title: t.Name,
		Album: t.Album.Name,
	}
	for _, a := range t.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	return track
}
