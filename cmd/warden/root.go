// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
)

// NewRootCmd creates the root command for the Warden CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warden",
		Short: "Warden - user management backend",
		Long: `Warden is a user management backend providing registration,
email verification, credential login, refresh-token rotation, and
role-based authorization over PostgreSQL.`,
	}

	// Flag names match config keys so they merge over file values.
	cmd.PersistentFlags().String("config", "", "config file path")
	cmd.PersistentFlags().String("database_url", "", "PostgreSQL connection URL")
	cmd.PersistentFlags().String("log_level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log_format", "", "log format (json, text)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig resolves configuration for a subcommand: defaults, then
// the --config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Flags())
}
