// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/identity"
	idpg "github.com/wardenhq/warden/internal/identity/postgres"
	"github.com/wardenhq/warden/internal/store"
)

const defaultSeedTimeout = 30 * time.Second

// seedPermissions are the capabilities known to the system, grouped by
// module. The admin role receives all of them; the default user role
// receives only the self-service set.
var seedPermissions = []struct {
	name        string
	displayName string
	module      string
	userRole    bool
}{
	{"user:read", "View users", "user", false},
	{"user:create", "Create users", "user", false},
	{"user:update", "Update users", "user", false},
	{"user:delete", "Delete users", "user", false},
	{"user:read_self", "View own profile", "user", true},
	{"user:update_self", "Update own profile", "user", true},
	{"role:read", "View roles", "role", false},
	{"role:create", "Create roles", "role", false},
	{"role:update", "Update roles", "role", false},
	{"role:delete", "Delete roles", "role", false},
	{"permission:read", "View permissions", "permission", false},
	{"permission:assign", "Assign permissions", "permission", false},
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed roles and permissions",
		Long: `Creates the built-in roles and permissions and grants them.
This command is idempotent - rerunning it will not create duplicates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, timeout time.Duration) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_MISSING_DATABASE_URL").Errorf("database_url is required")
	}

	// Use cmd.Context() so SIGINT aborts cleanly.
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	factory, err := idpg.NewFactory(pool)
	if err != nil {
		return err
	}

	err = factory.WithinTx(ctx, func(ctx context.Context, uow identity.UnitOfWork) error {
		roles, err := ensureRoles(ctx, uow)
		if err != nil {
			return err
		}
		return ensurePermissions(ctx, uow, roles)
	})
	if err != nil {
		return err
	}

	cmd.Println("Seed completed")
	return nil
}

// ensureRoles creates the built-in roles that do not exist yet and
// returns all of them by name.
func ensureRoles(ctx context.Context, uow identity.UnitOfWork) (map[string]*identity.Role, error) {
	wanted := []string{identity.RoleUser, identity.RoleAdmin}

	existing, err := uow.Roles().GetManyByNames(ctx, wanted)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*identity.Role, len(wanted))
	for _, r := range existing {
		byName[r.Name] = r
	}

	var missing []*identity.Role
	for _, name := range wanted {
		if byName[name] != nil {
			continue
		}
		role, err := identity.NewRole(name, nil)
		if err != nil {
			return nil, err
		}
		missing = append(missing, role)
	}

	created, err := uow.Roles().CreateMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, r := range created {
		byName[r.Name] = r
	}
	return byName, nil
}

// ensurePermissions creates missing permissions and grants them: every
// permission to admin, the self-service subset to the user role.
func ensurePermissions(ctx context.Context, uow identity.UnitOfWork, roles map[string]*identity.Role) error {
	for _, p := range seedPermissions {
		perm, err := uow.Permissions().GetByName(ctx, p.name)
		if errors.Is(err, identity.ErrNotFound) {
			np, nerr := identity.NewPermission(p.name, p.displayName, p.module, nil)
			if nerr != nil {
				return nerr
			}
			perm, err = uow.Permissions().Create(ctx, np)
		}
		if err != nil {
			return err
		}

		if err := uow.Permissions().GrantToRole(ctx, roles[identity.RoleAdmin].ID, perm.ID); err != nil {
			return err
		}
		if p.userRole {
			if err := uow.Permissions().GrantToRole(ctx, roles[identity.RoleUser].ID, perm.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
