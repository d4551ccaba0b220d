package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read for Spotify credentials, in order of preference.
var (
	clientIDVars     = []string{"SPOTIPY_CLIENT_ID", "SPOTIFY_CLIENT_ID"}
	clientSecretVars = []string{"SPOTIPY_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET"}
	redirectURIVars  = []string{"SPOTIPY_REDIRECT_URI", "SPOTIFY_REDIRECT_URI"}
)

// LoadEnv loads variables from the given dotenv files into the process environment.
//
// Missing files are ignored and variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides Spotify credentials with values from the environment.
func (c *Config) ApplyEnv() {
	s := &c.Credentials.Spotify
	if v := firstEnv(clientIDVars); v != "" {
		s.ClientID = v
	}
	if v := firstEnv(clientSecretVars); v != "" {
		s.ClientSecret = v
	}
	if v := firstEnv(redirectURIVars); v != "" {
		s.RedirectURI = v
	}
}

func firstEnv(names []string) string {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
	}
	return ""
}
