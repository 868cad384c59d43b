// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with up/down/force
// children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *store.Migrator) error {
					cmd.Println("Applying migrations...")
					if err := m.Up(); err != nil {
						return err
					}
					cmd.Println("Migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations (destructive)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *store.Migrator) error {
					cmd.Println("Rolling back all migrations...")
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("Schema removed")
					return nil
				})
			},
		},
		newMigrateForceCmd(),
	)

	return cmd
}

func newMigrateForceCmd() *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "force",
		Short: "Set the migration version without running migrations",
		Long: `Force the schema version to recover from a dirty migration state.
Only use after manually verifying the database schema.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if version < 0 {
				return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Version forced to %d\n", version)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "version to force")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

// withMigrator loads config, opens a migrator, runs fn, and closes the
// migrator reporting any close failure that fn did not already cause.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_MISSING_DATABASE_URL").Errorf("database_url is required")
	}

	m, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	runErr := fn(m)
	if closeErr := m.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	return runErr
}
