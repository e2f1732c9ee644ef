package main

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/layer-3/gatekeeper/adapters/users"
	"github.com/layer-3/gatekeeper/config"
	"github.com/spf13/cobra"
)

func init() {
	var databaseURL string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the user store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database connection URL. Can also be set via GATEKEEPER_DATABASE_URL.")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), databaseURL, func(ctx context.Context, db *sql.DB) error {
				if err := users.Migrate(ctx, db); err != nil {
					return err
				}
				cmd.Println("Applied all pending migrations")
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), databaseURL, func(ctx context.Context, db *sql.DB) error {
				if err := users.MigrateDown(ctx, db); err != nil {
					return err
				}
				cmd.Println("Rolled back one migration")
				return nil
			})
		},
	})

	rootCmd.AddCommand(migrateCmd)
}

func withDatabase(ctx context.Context, databaseURL string, fn func(context.Context, *sql.DB) error) error {
	ctx = contextOrBackground(ctx)
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	if databaseURL == "" {
		databaseURL = os.Getenv(config.Prefix + "DATABASE_URL")
	}
	if databaseURL == "" {
		return errors.New("missing database url: set --database-url or GATEKEEPER_DATABASE_URL")
	}

	db, err := users.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}
