// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/internal/identity/identitytest"
	"github.com/wardenhq/warden/pkg/errutil"
)

type authzFixture struct {
	store  *identitytest.Store
	signer *identity.Signer
	authz  *identity.Authorizer
	role   *identity.Role
	user   *identity.User
}

func newAuthzFixture(t *testing.T) *authzFixture {
	t.Helper()

	factory := identitytest.NewFactory()
	signer, err := identity.NewSigner("test-secret", time.Second)
	require.NoError(t, err)

	role := factory.Store.SeedRole(identity.RoleUser)
	user, err := identity.NewUser("jane@example.com", "hash", "Jane Doe", identity.GenderFemale, role.ID)
	require.NoError(t, err)
	user.Verified = true

	return &authzFixture{
		store:  factory.Store,
		signer: signer,
		authz:  identity.NewAuthorizer(factory, signer),
		role:   role,
		user:   factory.Store.SeedUser(user),
	}
}

func (f *authzFixture) accessToken(t *testing.T) string {
	t.Helper()
	token, err := f.signer.Issue(f.user.ID.String(), time.Minute)
	require.NoError(t, err)
	return token
}

func TestAuthorizer_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token resolves user", func(t *testing.T) {
		f := newAuthzFixture(t)

		user, err := f.authz.Authenticate(ctx, f.accessToken(t))
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, user.ID)
		assert.Equal(t, f.user.Email, user.Email)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newAuthzFixture(t)
		token, err := f.signer.Issue(f.user.ID.String(), -time.Minute)
		require.NoError(t, err)

		_, err = f.authz.Authenticate(ctx, token)
		errutil.AssertErrorKind(t, err, identity.ErrUnauthorized, "TOKEN_EXPIRED")
	})

	t.Run("token for deleted user", func(t *testing.T) {
		f := newAuthzFixture(t)
		signer := f.signer
		token, err := signer.Issue(ulid.Make().String(), time.Minute)
		require.NoError(t, err)

		_, err = f.authz.Authenticate(ctx, token)
		errutil.AssertErrorKind(t, err, identity.ErrNotFound, "USER_NOT_FOUND")
	})

	t.Run("unverified account rejected", func(t *testing.T) {
		f := newAuthzFixture(t)
		f.user.Verified = false
		f.store.SeedUser(f.user)

		_, err := f.authz.Authenticate(ctx, f.accessToken(t))
		errutil.AssertErrorKind(t, err, identity.ErrForbidden, "ACCOUNT_NOT_YET_ACTIVE")
	})

	t.Run("non-ULID subject", func(t *testing.T) {
		f := newAuthzFixture(t)
		token, err := f.signer.Issue("someone", time.Minute)
		require.NoError(t, err)

		_, err = f.authz.Authenticate(ctx, token)
		errutil.AssertErrorKind(t, err, identity.ErrUnauthorized, "TOKEN_MALFORMED")
	})
}

func TestAuthorizer_Require(t *testing.T) {
	ctx := context.Background()

	t.Run("granted permission passes", func(t *testing.T) {
		f := newAuthzFixture(t)
		f.store.SeedPermission("user:read_self", f.role.ID)

		assert.NoError(t, f.authz.Require(ctx, f.user, "user:read_self"))
	})

	t.Run("missing permission denied", func(t *testing.T) {
		f := newAuthzFixture(t)
		f.store.SeedPermission("user:delete") // exists, but not granted to the role

		err := f.authz.Require(ctx, f.user, "user:delete")
		errutil.AssertErrorKind(t, err, identity.ErrForbidden, "PERMISSION_DENIED")
		errutil.AssertErrorContext(t, err, "permission", "user:delete")
	})

	t.Run("unknown permission denied", func(t *testing.T) {
		f := newAuthzFixture(t)

		err := f.authz.Require(ctx, f.user, "does:not:exist")
		errutil.AssertErrorKind(t, err, identity.ErrForbidden, "PERMISSION_DENIED")
	})
}

func TestAuthorizer_HasPermission(t *testing.T) {
	ctx := context.Background()
	f := newAuthzFixture(t)

	admin := f.store.SeedRole(identity.RoleAdmin)
	f.store.SeedPermission("user:delete", admin.ID)

	granted, err := f.authz.HasPermission(ctx, admin.ID, "user:delete")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = f.authz.HasPermission(ctx, f.role.ID, "user:delete")
	require.NoError(t, err)
	assert.False(t, granted)
}
