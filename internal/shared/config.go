package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Duplicate handling modes for destination playlists that already exist.
const (
	DuplicateMerge = "merge"
	DuplicateSkip  = "skip"
)

// Destination API limits.
const (
	MaxBatchSize     = 50
	MaxPlaylistTitle = 150
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Migration   MigrationConfig   `toml:"migration"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials and the persisted OAuth token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenExpiry  time.Time `toml:"token_expiry,omitempty"`
}

// YouTubeConfig points at the ytmusicapi proxy and the browser headers bundle it authenticates with.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// DatabaseConfig contains settings for the run journal database.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// MigrationConfig controls the migration driver.
type MigrationConfig struct {
	DuplicateMode     string   `toml:"duplicate_mode"`
	StateFile         string   `toml:"state_file"`
	FailedSongsFile   string   `toml:"failed_songs_file"`
	LikedPlaylistName string   `toml:"liked_playlist_name"`
	Privacy           string   `toml:"privacy"`
	SearchDelay       Duration `toml:"search_delay"`
	AddDelay          Duration `toml:"add_delay"`
	RetryBase         Duration `toml:"retry_base"`
	MaxRetries        int      `toml:"max_retries"`
	BatchSize         int      `toml:"batch_size"`
	NameMaxLength     int      `toml:"name_max_length"`
}

// Duration is a [time.Duration] that reads and writes as a string ("500ms", "1s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Map returns the credentials in the map form accepted by service constructors.
func (s SpotifyConfig) Map() map[string]string {
	m := map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
	if s.AccessToken != "" {
		m["access_token"] = s.AccessToken
		m["refresh_token"] = s.RefreshToken
		if !s.TokenExpiry.IsZero() {
			m["expiry"] = s.TokenExpiry.Format(time.RFC3339)
		}
	}
	return m
}

// Token returns the persisted OAuth token, or nil when none has been stored.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.TokenExpiry,
	}
}

// Update stores the fields of token in the config.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenExpiry = token.Expiry
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveConfig writes config to path, replacing any existing file.
//
// The file holds OAuth tokens, so it is written with owner-only permissions.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate checks the migration section for values the driver cannot work with.
func (c *Config) Validate() error {
	m := c.Migration
	switch m.DuplicateMode {
	case DuplicateMerge, DuplicateSkip:
	default:
		return fmt.Errorf("%w: duplicate_mode must be %q or %q, got %q", ErrInvalidConfig, DuplicateMerge, DuplicateSkip, m.DuplicateMode)
	}

	if m.BatchSize < 1 || m.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: batch_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxBatchSize, m.BatchSize)
	}
	if m.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be at least 1", ErrInvalidConfig)
	}
	if m.NameMaxLength < 1 || m.NameMaxLength > MaxPlaylistTitle {
		return fmt.Errorf("%w: name_max_length must be between 1 and %d", ErrInvalidConfig, MaxPlaylistTitle)
	}
	if m.StateFile == "" {
		return fmt.Errorf("%w: state_file is required", ErrInvalidConfig)
	}

	switch strings.ToUpper(m.Privacy) {
	case "PRIVATE", "PUBLIC", "UNLISTED":
	default:
		return fmt.Errorf("%w: privacy must be PRIVATE, PUBLIC or UNLISTED", ErrInvalidConfig)
	}
	return nil
}
