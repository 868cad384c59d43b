// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Repository is the persistence contract shared by entity repositories.
// Create and Update return the stored entity so callers observe
// database-assigned fields. GetAll pages with offset/limit; orderBy
// names a column from the repository's allow-list and may be empty for
// the default stable order.
type Repository[T any, ID comparable] interface {
	Create(ctx context.Context, entity *T) (*T, error)

	// CreateMany inserts a batch in a single round trip. An empty batch
	// returns an empty slice without touching the database.
	CreateMany(ctx context.Context, entities []*T) ([]*T, error)

	GetByID(ctx context.Context, id ID) (*T, error)
	GetAll(ctx context.Context, offset, limit int, orderBy string) ([]*T, error)
	Update(ctx context.Context, entity *T) (*T, error)

	// Delete removes the entity, reporting whether a row was deleted.
	Delete(ctx context.Context, id ID) (bool, error)
}

// UserRepository manages user persistence.
type UserRepository interface {
	Repository[User, ulid.ULID]

	// GetByEmail retrieves a user by exact email match.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByVerifyTokenHash retrieves the user holding the given
	// verification-token fingerprint.
	GetByVerifyTokenHash(ctx context.Context, fingerprint string) (*User, error)
}

// RoleRepository manages role persistence.
type RoleRepository interface {
	Repository[Role, int64]

	GetByName(ctx context.Context, name string) (*Role, error)

	// GetManyByNames resolves roles for a set of names in one query.
	// Unknown names are simply absent from the result.
	GetManyByNames(ctx context.Context, names []string) ([]*Role, error)
}

// PermissionRepository manages permission persistence and the
// role-permission grants.
type PermissionRepository interface {
	Repository[Permission, int64]

	GetByName(ctx context.Context, name string) (*Permission, error)

	// GrantToRole attaches a permission to a role. Granting an existing
	// pair is a no-op.
	GrantToRole(ctx context.Context, roleID, permissionID int64) error

	// RevokeFromRole detaches a permission from a role, reporting
	// whether a grant was removed.
	RevokeFromRole(ctx context.Context, roleID, permissionID int64) (bool, error)

	// RoleHasPermission reports whether the role grants the named
	// permission, resolved by a single join query.
	RoleHasPermission(ctx context.Context, roleID int64, permission string) (bool, error)
}

// RefreshTokenRepository manages refresh-token records. Records are an
// audit trail: rotation and revocation update state rather than delete
// rows, so the contract exposes no Update or Delete surface.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) (*RefreshToken, error)
	GetByID(ctx context.Context, id ulid.ULID) (*RefreshToken, error)

	// GetByTokenHash retrieves a record by its fingerprint.
	GetByTokenHash(ctx context.Context, fingerprint string) (*RefreshToken, error)

	// GetAllForUser lists a user's records, newest first.
	GetAllForUser(ctx context.Context, userID ulid.ULID) ([]*RefreshToken, error)

	// MarkUsed consumes the token during rotation, recording the
	// fingerprint that replaced it. Consuming an already-used token
	// returns ErrNotFound.
	MarkUsed(ctx context.Context, fingerprint, replacedBy string) error

	// Revoke invalidates the token. Revoking an already-revoked or
	// unknown token returns ErrNotFound.
	Revoke(ctx context.Context, fingerprint string) error

	// RevokeAllForUser invalidates every active token of a user and
	// returns the number revoked.
	RevokeAllForUser(ctx context.Context, userID ulid.ULID) (int64, error)
}

// UnitOfWork exposes repositories bound to a single transaction. All
// repository calls made through one UnitOfWork commit or roll back
// together. Instances are valid only inside the WithinTx callback that
// produced them.
type UnitOfWork interface {
	Users() UserRepository
	Roles() RoleRepository
	Permissions() PermissionRepository
	RefreshTokens() RefreshTokenRepository
}

// UnitOfWorkFactory opens transaction scopes.
type UnitOfWorkFactory interface {
	// WithinTx begins a transaction, invokes fn with a UnitOfWork bound
	// to it, and commits if fn returns nil. Any error, panic, or
	// context cancellation rolls the transaction back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
