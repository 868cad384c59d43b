// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Authorizer authenticates access tokens and enforces role permissions.
// Authentication and permission checking are separate steps: a handler
// first authenticates the caller, then requires whatever permission the
// operation demands.
type Authorizer struct {
	uow    UnitOfWorkFactory
	signer *Signer
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(uow UnitOfWorkFactory, signer *Signer) *Authorizer {
	return &Authorizer{uow: uow, signer: signer}
}

// Authenticate verifies the access token, loads its user, and requires
// the account to be verified.
func (a *Authorizer) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	subject, err := a.signer.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	userID, err := ulid.Parse(subject)
	if err != nil {
		return nil, oops.Code("TOKEN_MALFORMED").
			With("subject", subject).
			Wrap(ErrUnauthorized)
	}

	var user *User
	err = a.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		u, err := uow.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("USER_NOT_FOUND").
					With("user_id", userID.String()).
					Wrap(ErrNotFound)
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !user.Verified {
		return nil, oops.Code("ACCOUNT_NOT_YET_ACTIVE").
			With("user_id", userID.String()).
			Wrap(ErrForbidden)
	}
	return user, nil
}

// Require fails with ErrForbidden unless the user's role grants the
// named permission.
func (a *Authorizer) Require(ctx context.Context, user *User, permission string) error {
	granted, err := a.HasPermission(ctx, user.RoleID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return oops.Code("PERMISSION_DENIED").
			With("user_id", user.ID.String()).
			With("permission", permission).
			Wrap(ErrForbidden)
	}
	return nil
}

// HasPermission reports whether the role grants the named permission.
func (a *Authorizer) HasPermission(ctx context.Context, roleID int64, permission string) (bool, error) {
	var granted bool
	err := a.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		ok, err := uow.Permissions().RoleHasPermission(ctx, roleID, permission)
		if err != nil {
			return err
		}
		granted = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}
