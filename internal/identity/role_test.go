// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/pkg/errutil"
)

func TestNewRole(t *testing.T) {
	t.Run("valid role", func(t *testing.T) {
		desc := "full access"
		role, err := identity.NewRole(identity.RoleAdmin, &desc)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleAdmin, role.Name)
		require.NotNil(t, role.Description)
		assert.Equal(t, desc, *role.Description)
		assert.Zero(t, role.ID, "ID is assigned on insert")
	})

	t.Run("empty name rejected", func(t *testing.T) {
		role, err := identity.NewRole("", nil)
		require.Error(t, err)
		assert.Nil(t, role)
		errutil.AssertErrorCode(t, err, "ROLE_INVALID_NAME")
	})
}

func TestNewPermission(t *testing.T) {
	t.Run("valid permission", func(t *testing.T) {
		desc := "read any user record"
		perm, err := identity.NewPermission("user:read", "Read users", "user", &desc)
		require.NoError(t, err)
		assert.Equal(t, "user:read", perm.Name)
		assert.Equal(t, "Read users", perm.DisplayName)
		assert.Equal(t, "user", perm.Module)
		require.NotNil(t, perm.Description)
		assert.Equal(t, desc, *perm.Description)
	})

	t.Run("description is optional", func(t *testing.T) {
		perm, err := identity.NewPermission("user:create", "Create users", "user", nil)
		require.NoError(t, err)
		assert.Nil(t, perm.Description)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		perm, err := identity.NewPermission("", "", "", nil)
		require.Error(t, err)
		assert.Nil(t, perm)
		errutil.AssertErrorCode(t, err, "PERMISSION_INVALID_NAME")
	})
}
