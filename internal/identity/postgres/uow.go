// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardenhq/warden/internal/identity"
)

// txBeginner starts transactions. Satisfied by *pgxpool.Pool and
// pgxmock pools.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Factory opens unit-of-work scopes backed by Postgres transactions.
type Factory struct {
	db txBeginner
}

// NewFactory creates a Factory over a connection pool.
func NewFactory(db txBeginner) (*Factory, error) {
	if db == nil {
		return nil, oops.Code("UOW_NIL_POOL").Errorf("database pool cannot be nil")
	}
	return &Factory{db: db}, nil
}

// WithinTx begins a transaction and invokes fn with a UnitOfWork bound
// to it. The transaction commits only when fn returns nil; any error or
// panic rolls it back. The deferred rollback is a no-op after a
// successful commit.
func (f *Factory) WithinTx(ctx context.Context, fn func(ctx context.Context, uow identity.UnitOfWork) error) error {
	tx, err := f.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &unitOfWork{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// unitOfWork lazily constructs repositories bound to one transaction.
// Repeated accessor calls within a scope return the same repository.
type unitOfWork struct {
	tx pgx.Tx

	users         *UserRepository
	roles         *RoleRepository
	permissions   *PermissionRepository
	refreshTokens *RefreshTokenRepository
}

func (u *unitOfWork) Users() identity.UserRepository {
	if u.users == nil {
		u.users = NewUserRepository(u.tx)
	}
	return u.users
}

func (u *unitOfWork) Roles() identity.RoleRepository {
	if u.roles == nil {
		u.roles = NewRoleRepository(u.tx)
	}
	return u.roles
}

func (u *unitOfWork) Permissions() identity.PermissionRepository {
	if u.permissions == nil {
		u.permissions = NewPermissionRepository(u.tx)
	}
	return u.permissions
}

func (u *unitOfWork) RefreshTokens() identity.RefreshTokenRepository {
	if u.refreshTokens == nil {
		u.refreshTokens = NewRefreshTokenRepository(u.tx)
	}
	return u.refreshTokens
}

// Compile-time interface checks.
var (
	_ identity.UnitOfWorkFactory = (*Factory)(nil)
	_ identity.UnitOfWork        = (*unitOfWork)(nil)
)
