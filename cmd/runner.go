package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built from the loaded config on first use unless they were injected through [RunnerOpts].
type Runner struct {
	config     *shared.Config
	configPath string
	loaded     bool
	source     services.Source
	dest       services.Destination
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Source      services.Source
	Destination services.Destination
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loaded:     opts.Config != nil,
		source:     opts.Source,
		dest:       opts.Destination,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	if r.configPath == "" {
		r.configPath = defaultConfigPath
	}
	return r
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "ytmigrate",
		Usage:   "Migrate Spotify playlists and liked songs to YouTube Music",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("YTMIGRATE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with SPOTIPY_* credentials",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		migrateCommand, authCommand, stateCommand, historyCommand, setupCommand, configCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// prepare applies the global flags: log level, dotenv file and config file. Injected config is kept as is.
func (r *Runner) prepare(cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.loaded {
		return nil
	}
	r.loaded = true

	if err := shared.LoadEnv(cmd.String("env-file")); err != nil {
		r.logger.Warn("could not load env file", "error", err)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	r.config.ApplyEnv()
	return nil
}

// spotifySource returns the authenticated Spotify source.
func (r *Runner) spotifySource(ctx context.Context) (services.Source, error) {
	if r.source != nil {
		return r.source, nil
	}

	creds := r.config.Credentials.Spotify.Map()
	svc, err := services.NewSpotifyService(creds)
	if err != nil {
		return nil, fmt.Errorf("%w (set them in %s or SPOTIPY_CLIENT_ID / SPOTIPY_CLIENT_SECRET)", err, r.configPath)
	}
	if err := svc.Authenticate(ctx, creds); err != nil {
		return nil, err
	}

	r.source = svc
	return svc, nil
}

// youtubeDestination returns the YouTube Music client, failing when the headers bundle is missing.
func (r *Runner) youtubeDestination(ctx context.Context) (services.Destination, error) {
	if r.dest != nil {
		return r.dest, nil
	}

	yt := r.config.Credentials.YouTube
	svc := services.NewYouTubeService(yt.ProxyURL, r.httpClient)
	if err := svc.Authenticate(ctx, map[string]string{"auth_file": yt.HeadersPath}); err != nil {
		if errors.Is(err, shared.ErrMissingAuthFile) {
			r.writePlain("✗ YouTube Music headers file %q not found.\n", yt.HeadersPath)
			r.writePlain("  Copy a signed-in music.youtube.com request as cURL and run 'ytmigrate auth youtube --curl-file <file>'\n")
			r.writePlain("  (or point credentials.youtube.headers_path in %s at an existing file) and run again.\n", r.configPath)
		}
		return nil, err
	}

	r.dest = svc
	return svc, nil
}

// persistToken writes a refreshed Spotify token back to the config file.
func (r *Runner) persistToken() {
	svc, ok := r.source.(*services.SpotifyService)
	if !ok {
		return
	}

	token, err := svc.Token()
	if err != nil {
		r.logger.Warn("could not read Spotify token", "error", err)
		return
	}

	if token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}
	if err := r.saveTokens(token); err != nil {
		r.logger.Warn("could not save refreshed Spotify token", "path", r.configPath, "error", err)
		return
	}
	r.logger.Debug("refreshed Spotify token saved", "path", r.configPath)
}

// saveTokens stores token in the config and writes the config file.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// openRepository opens the run journal. The returned close func is never nil.
func (r *Runner) openRepository(ctx context.Context) (*repositories.MigrationRepository, func(), error) {
	if r.config.Database.Path == "" {
		return nil, func() {}, fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}

	db, err := shared.OpenJournal(ctx, r.config.Database)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open journal: %w", err)
	}

	closer := func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("error closing journal", "error", err)
		}
	}
	return repositories.NewMigrationRepository(db), closer, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
