package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the journal database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	cfg := r.config.Database
	r.logger.Info("initializing database", "path", cfg.Path)

	db, err := shared.OpenJournal(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	version, err := shared.CurrentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", cfg.Path)
	return r.writePlain("✓ Database %s is at schema version %d\n", cfg.Path, version)
}

// ConfigInit writes the example configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIPY_* in .env)\n")
	r.writePlain("2. Run 'ytmigrate auth youtube --curl-file request.sh' with a signed-in music.youtube.com request\n")
	r.writePlain("3. Run 'ytmigrate auth spotify', then 'ytmigrate migrate'\n")
	return nil
}
