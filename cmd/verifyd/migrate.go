// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/config"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/database"
	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Flags: config.DatabaseFlags(),
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: withSchema(database.RunMigrations),
			},
			{
				Name:   "down",
				Usage:  "Roll back the latest migration",
				Action: withSchema(database.MigrateDown),
			},
			{
				Name:   "reset",
				Usage:  "Roll back every migration",
				Action: withSchema(database.MigrateReset),
			},
			{
				Name:   "status",
				Usage:  "Print the current schema version",
				Action: withSchema(func(*sql.DB) error { return nil }),
			},
		},
	}
}

// withSchema runs fn against a connection that has not been migrated and
// prints the resulting schema version.
func withSchema(fn func(*sql.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		setupLogger(cmd)
		db, err := database.Connect(cmd.String("database-dsn"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = database.Close(db) }()

		if err := fn(db.DB); err != nil {
			return err
		}

		version, err := database.SchemaVersion(db.DB)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		fmt.Fprintf(cmd.Root().Writer, "schema version %d\n", version)
		return nil
	}
}
