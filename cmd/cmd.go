// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// migrateCommand runs the Spotify → YouTube Music migration.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate every Spotify playlist, then Liked Songs, to YouTube Music",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Only migrate the named Spotify playlist (name or ID, repeatable)",
			},
			&cli.BoolFlag{
				Name:  "no-liked",
				Usage: "Skip the Liked Songs playlist",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Match tracks without creating or changing YouTube Music playlists",
			},
			&cli.StringFlag{
				Name:  "duplicate-mode",
				Usage: "How to treat same-named YouTube Music playlists: merge or skip (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in the interactive terminal UI",
			},
			&cli.BoolFlag{
				Name:  "no-journal",
				Usage: "Do not record the run in the journal database",
			},
		},
		Action: r.Migrate,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "spotify",
				Usage: "Authorize with Spotify using OAuth2 and store the token in the config file",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: authTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthSpotify,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt"},
				Usage:   "Save YouTube Music browser headers from a request copied as cURL",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
				},
				Action: r.AuthYouTube,
			},
			{
				Name:   "status",
				Usage:  "Check the stored Spotify token and the YouTube Music proxy",
				Action: r.AuthStatus,
			},
		},
	}
}

// stateCommand inspects the persisted match cache.
func stateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Inspect or reset the migration state file",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Summarize cached matches, completed playlists and failed songs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.StateShow,
			},
			{
				Name:  "report",
				Usage: "Export songs that could not be matched",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format: text, csv or markdown",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to a file instead of stdout",
					},
				},
				Action: r.StateReport,
			},
			{
				Name:  "reset",
				Usage: "Delete the state file and the failure report",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm deletion",
					},
				},
				Action: r.StateReset,
			},
		},
	}
}

// historyCommand lists journaled runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List previous migration runs from the journal",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
				Value: 10,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show the playlists of a single run",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for the journal database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the journal database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// configCommand writes the example configuration.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write an example config.toml",
				Action: r.ConfigInit,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for picking playlists interactively.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Pick playlists to migrate in the interactive TUI",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Match tracks without creating or changing YouTube Music playlists",
			},
		},
		Action: r.TUI,
	}
}
