// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/store"
)

// dbStatus holds the status of the backing database.
type dbStatus struct {
	Reachable bool   `json:"reachable"`
	Version   uint   `json:"schema_version"`
	Dirty     bool   `json:"schema_dirty"`
	Error     string `json:"error,omitempty"`
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database connectivity and schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_MISSING_DATABASE_URL").Errorf("database_url is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	status := collectStatus(ctx, cfg.DatabaseURL)

	if jsonOutput {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return oops.Code("STATUS_ENCODE_FAILED").Wrap(err)
		}
		cmd.Println(string(out))
		return nil
	}

	if !status.Reachable {
		cmd.Printf("database: unreachable (%s)\n", status.Error)
		return nil
	}
	cmd.Println("database: ok")
	cmd.Printf("schema version: %d (dirty: %v)\n", status.Version, status.Dirty)
	return nil
}

func collectStatus(ctx context.Context, databaseURL string) dbStatus {
	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return dbStatus{Error: err.Error()}
	}
	defer pool.Close()

	status := dbStatus{Reachable: true}

	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer func() { _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = version
	status.Dirty = dirty
	return status
}
