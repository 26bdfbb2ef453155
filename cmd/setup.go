package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when it is missing, then migrates the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			config, err := shared.ResolveConfig(configPath, cmd.String("env"))
			if err != nil {
				return fmt.Errorf("failed to load created config: %w", err)
			}
			r.config = config
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, err := shared.RollbackMigration(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return r.writePlain("✓ Rolled back migration %d\n", version)
}

// SetupStatus prints the applied migrations.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	applied, err := shared.AppliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	r.writePlainHeader(fmt.Sprintf("Database %s", r.config.Database.Path))
	if len(applied) == 0 {
		return r.writePlain("No migrations applied\n")
	}
	for _, m := range applied {
		r.writePlain("%04d  applied %s\n", m.Version, m.AppliedAt)
	}
	return nil
}
