package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/ytmigrate/internal/server"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

type healthChecker interface {
	Health(ctx context.Context) error
}

// AuthSpotify performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization, exchanges the code for
// tokens and saves them to the config file.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("%w (set them in %s or SPOTIPY_CLIENT_ID / SPOTIPY_CLIENT_SECRET)", err, r.configPath)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}

	token, err := r.doOAuth(ctx, svc, timeout, !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now run: ytmigrate migrate\n")

	return nil
}

// AuthYouTube saves the headers bundle of a signed-in music.youtube.com request to credentials.youtube.headers_path.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	curl, curlFile := cmd.String("curl"), cmd.String("curl-file")
	if curl == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curl != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var headers *shared.BrowserHeaders
	var err error
	if curlFile != "" {
		headers, err = shared.ReadCurlFile(curlFile)
	} else {
		headers, err = shared.ParseCurl([]byte(curl))
	}
	if err != nil {
		return err
	}

	path := r.config.Credentials.YouTube.HeadersPath
	if err := headers.WriteFile(path); err != nil {
		return err
	}
	r.logger.Info("headers saved", "path", path, "headers", len(headers.Headers))

	r.writePlain("✓ YouTube Music headers saved to %s\n", path)
	r.writePlain("Check the proxy with: ytmigrate auth status\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local callback server.
func (r *Runner) doOAuth(ctx context.Context, svc *services.SpotifyService, timeout time.Duration, openBrowser bool) (*oauth2.Token, error) {
	state := shared.GenerateState()

	srv, err := server.NewCallbackServer(svc.RedirectURL(), state, svc, r.logger)
	if err != nil {
		return nil, err
	}
	srv.Start()

	authURL := svc.AuthURL(state)
	if openBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			openBrowser = false
		}
	}
	if !openBrowser {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	token, err := srv.Wait(ctx, timeout)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}

// AuthStatus reports whether a Spotify token is stored and whether the YouTube Music proxy answers.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	r.logger.Info("checking auth status")

	spotify := r.config.Credentials.Spotify
	switch {
	case spotify.AccessToken == "":
		r.writePlain("Spotify: ✗ Not authorized (run 'ytmigrate auth spotify')\n")
	case spotify.TokenExpiry.IsZero():
		r.writePlain("Spotify: ✓ Token stored\n")
	case spotify.TokenExpiry.Before(time.Now()):
		r.writePlain("Spotify: ✓ Token stored (expired %s, will refresh)\n", spotify.TokenExpiry.Format(time.RFC3339))
	default:
		r.writePlain("Spotify: ✓ Token stored (expires %s)\n", spotify.TokenExpiry.Format(time.RFC3339))
	}

	headersPath := r.config.Credentials.YouTube.HeadersPath
	if _, err := os.Stat(headersPath); err != nil && r.dest == nil {
		r.writePlain("YouTube Music: ✗ Headers file %q not found\n", headersPath)
		return fmt.Errorf("%w: %s", shared.ErrMissingAuthFile, headersPath)
	}

	dest, err := r.youtubeDestination(ctx)
	if err != nil {
		return err
	}

	if hc, ok := dest.(healthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			r.writePlain("YouTube Music: ✗ Proxy unreachable at %s\n", r.config.Credentials.YouTube.ProxyURL)
			return err
		}
	}
	r.writePlain("YouTube Music: ✓ Proxy is healthy\n")
	return nil
}
