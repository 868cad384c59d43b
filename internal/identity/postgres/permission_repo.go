// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardenhq/warden/internal/identity"
)

const permissionColumns = "id, name, display_name, description, module, created_at, updated_at"

var permissionOrderColumns = map[string]bool{
	"name":       true,
	"module":     true,
	"created_at": true,
}

// PermissionRepository implements identity.PermissionRepository using
// PostgreSQL.
type PermissionRepository struct {
	db querier
}

// NewPermissionRepository creates a new PermissionRepository.
func NewPermissionRepository(db querier) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create stores a new permission and returns it with the assigned ID.
func (r *PermissionRepository) Create(ctx context.Context, perm *identity.Permission) (*identity.Permission, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO permissions (name, display_name, description, module, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, perm.Name, perm.DisplayName, perm.Description, perm.Module, perm.CreatedAt, perm.UpdatedAt).Scan(&perm.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("PERMISSION_ALREADY_EXISTS").
				With("name", perm.Name).
				Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("PERMISSION_CREATE_FAILED").
			With("name", perm.Name).
			Wrap(err)
	}
	return perm, nil
}

// CreateMany inserts a batch of permissions in one statement and fills
// in the assigned IDs.
func (r *PermissionRepository) CreateMany(ctx context.Context, perms []*identity.Permission) ([]*identity.Permission, error) {
	if len(perms) == 0 {
		return []*identity.Permission{}, nil
	}

	const cols = 6
	args := make([]any, 0, len(perms)*cols)
	for _, p := range perms {
		args = append(args, p.Name, p.DisplayName, p.Description, p.Module, p.CreatedAt, p.UpdatedAt)
	}

	rows, err := r.db.Query(ctx, `
		INSERT INTO permissions (name, display_name, description, module, created_at, updated_at)
		VALUES `+valuesClause(len(perms), cols)+`
		RETURNING id
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("PERMISSION_ALREADY_EXISTS").Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("PERMISSION_CREATE_MANY_FAILED").
			With("count", len(perms)).
			Wrap(err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&perms[i].ID); err != nil {
			return nil, oops.Code("PERMISSION_CREATE_MANY_FAILED").Wrap(err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PERMISSION_CREATE_MANY_FAILED").Wrap(err)
	}
	return perms, nil
}

// GetByID retrieves a permission by ID.
func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*identity.Permission, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+permissionColumns+` FROM permissions WHERE id = $1
	`, id)

	perm, err := scanPermission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PERMISSION_NOT_FOUND").
			With("id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PERMISSION_GET_BY_ID_FAILED").
			With("id", id).
			Wrap(err)
	}
	return perm, nil
}

// GetByName retrieves a permission by its unique name.
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*identity.Permission, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+permissionColumns+` FROM permissions WHERE name = $1
	`, name)

	perm, err := scanPermission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PERMISSION_NOT_FOUND").
			With("name", name).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PERMISSION_GET_BY_NAME_FAILED").
			With("name", name).
			Wrap(err)
	}
	return perm, nil
}

// GetAll pages through permissions.
func (r *PermissionRepository) GetAll(ctx context.Context, offset, limit int, orderBy string) ([]*identity.Permission, error) {
	order, err := orderClause(orderBy, "id", permissionOrderColumns)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+permissionColumns+` FROM permissions `+order+` OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, oops.Code("PERMISSION_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var perms []*identity.Permission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, oops.Code("PERMISSION_LIST_FAILED").Wrap(err)
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PERMISSION_LIST_FAILED").Wrap(err)
	}
	return perms, nil
}

// Update saves the permission row.
func (r *PermissionRepository) Update(ctx context.Context, perm *identity.Permission) (*identity.Permission, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE permissions SET name = $2, display_name = $3, description = $4, module = $5, updated_at = $6
		WHERE id = $1
	`, perm.ID, perm.Name, perm.DisplayName, perm.Description, perm.Module, perm.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("PERMISSION_ALREADY_EXISTS").
				With("name", perm.Name).
				Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("PERMISSION_UPDATE_FAILED").
			With("id", perm.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return nil, oops.Code("PERMISSION_NOT_FOUND").
			With("id", perm.ID).
			Wrap(identity.ErrNotFound)
	}
	return perm, nil
}

// Delete removes a permission. Grants referencing it cascade away.
func (r *PermissionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM permissions WHERE id = $1
	`, id)
	if err != nil {
		return false, oops.Code("PERMISSION_DELETE_FAILED").
			With("id", id).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// GrantToRole attaches a permission to a role. Re-granting an existing
// pair is a no-op.
func (r *PermissionRepository) GrantToRole(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO role_permission (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roleID, permissionID)
	if err != nil {
		return oops.Code("PERMISSION_GRANT_FAILED").
			With("role_id", roleID).
			With("permission_id", permissionID).
			Wrap(err)
	}
	return nil
}

// RevokeFromRole detaches a permission from a role.
func (r *PermissionRepository) RevokeFromRole(ctx context.Context, roleID, permissionID int64) (bool, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM role_permission WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	if err != nil {
		return false, oops.Code("PERMISSION_REVOKE_FAILED").
			With("role_id", roleID).
			With("permission_id", permissionID).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// RoleHasPermission resolves the grant with a single join query.
func (r *PermissionRepository) RoleHasPermission(ctx context.Context, roleID int64, permission string) (bool, error) {
	var granted bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM role_permission rp
			JOIN permissions p ON p.id = rp.permission_id
			WHERE rp.role_id = $1 AND p.name = $2
		)
	`, roleID, permission).Scan(&granted)
	if err != nil {
		return false, oops.Code("PERMISSION_CHECK_FAILED").
			With("role_id", roleID).
			With("permission", permission).
			Wrap(err)
	}
	return granted, nil
}

func scanPermission(row pgx.Row) (*identity.Permission, error) {
	var perm identity.Permission
	err := row.Scan(&perm.ID, &perm.Name, &perm.DisplayName, &perm.Description, &perm.Module, &perm.CreatedAt, &perm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("PERMISSION_SCAN_FAILED").Wrap(err)
	}
	return &perm, nil
}

// Compile-time interface check.
var _ identity.PermissionRepository = (*PermissionRepository)(nil)
