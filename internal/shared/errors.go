package shared

import "fmt"

var (
	// Startup: config file, credentials and the destination headers bundle
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrMissingAuthFile    = fmt.Errorf("destination authentication file not found")

	// Spotify OAuth
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Remote calls. ErrPlaylistCreate aborts a run, ErrAddTracks fails one playlist.
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistCreate     = fmt.Errorf("playlist creation failed")
	ErrAddTracks          = fmt.Errorf("adding tracks failed")

	// Persisted match state
	ErrStateVersion = fmt.Errorf("unsupported state version")
	ErrStateCorrupt = fmt.Errorf("state file is malformed")

	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
