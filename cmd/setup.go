package main

import (
	"context"
	"fmt"

	"github.com/julianstephens/church-latin/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return fmt.Errorf("%w: --config", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config template written to %s\n", path)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set pocketbase.url, or export %s\n", shared.EnvPocketBaseURL)
	r.writePlain("2. Export %s and %s (or put them in .env)\n", shared.EnvPocketBaseEmail, shared.EnvPocketBasePassword)
	r.writePlain("3. Run 'clseed validate' to check the fixtures\n")
	return nil
}

// SetupDatabase initializes the history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	if _, err := r.history(cmd); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupRollback reverts the most recent history database migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database(cmd)
	if err != nil {
		return err
	}

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	r.logger.Info("rolled back latest migration")
	return nil
}
