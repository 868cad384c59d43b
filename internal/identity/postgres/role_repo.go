// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardenhq/warden/internal/identity"
)

const roleColumns = "id, name, description, created_at, updated_at"

var roleOrderColumns = map[string]bool{
	"name":       true,
	"created_at": true,
}

// RoleRepository implements identity.RoleRepository using PostgreSQL.
type RoleRepository struct {
	db querier
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db querier) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create stores a new role and returns it with the assigned ID.
func (r *RoleRepository) Create(ctx context.Context, role *identity.Role) (*identity.Role, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO roles (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, role.Name, role.Description, role.CreatedAt, role.UpdatedAt).Scan(&role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("ROLE_ALREADY_EXISTS").
				With("name", role.Name).
				Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("ROLE_CREATE_FAILED").
			With("name", role.Name).
			Wrap(err)
	}
	return role, nil
}

// CreateMany inserts a batch of roles in one statement and fills in the
// assigned IDs.
func (r *RoleRepository) CreateMany(ctx context.Context, roles []*identity.Role) ([]*identity.Role, error) {
	if len(roles) == 0 {
		return []*identity.Role{}, nil
	}

	const cols = 4
	args := make([]any, 0, len(roles)*cols)
	for _, role := range roles {
		args = append(args, role.Name, role.Description, role.CreatedAt, role.UpdatedAt)
	}

	rows, err := r.db.Query(ctx, `
		INSERT INTO roles (name, description, created_at, updated_at)
		VALUES `+valuesClause(len(roles), cols)+`
		RETURNING id
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("ROLE_ALREADY_EXISTS").Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("ROLE_CREATE_MANY_FAILED").
			With("count", len(roles)).
			Wrap(err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&roles[i].ID); err != nil {
			return nil, oops.Code("ROLE_CREATE_MANY_FAILED").Wrap(err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_CREATE_MANY_FAILED").Wrap(err)
	}
	return roles, nil
}

// GetByID retrieves a role by ID.
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*identity.Role, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+roleColumns+` FROM roles WHERE id = $1
	`, id)

	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROLE_NOT_FOUND").
			With("id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_BY_ID_FAILED").
			With("id", id).
			Wrap(err)
	}
	return role, nil
}

// GetByName retrieves a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*identity.Role, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+roleColumns+` FROM roles WHERE name = $1
	`, name)

	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROLE_NOT_FOUND").
			With("name", name).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_BY_NAME_FAILED").
			With("name", name).
			Wrap(err)
	}
	return role, nil
}

// GetManyByNames resolves roles for a set of names in one query.
// Unknown names are absent from the result, not an error.
func (r *RoleRepository) GetManyByNames(ctx context.Context, names []string) ([]*identity.Role, error) {
	if len(names) == 0 {
		return []*identity.Role{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+roleColumns+` FROM roles WHERE name = ANY($1)
	`, names)
	if err != nil {
		return nil, oops.Code("ROLE_GET_MANY_FAILED").Wrap(err)
	}
	defer rows.Close()

	var roles []*identity.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, oops.Code("ROLE_GET_MANY_FAILED").Wrap(err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_GET_MANY_FAILED").Wrap(err)
	}
	return roles, nil
}

// GetAll pages through roles.
func (r *RoleRepository) GetAll(ctx context.Context, offset, limit int, orderBy string) ([]*identity.Role, error) {
	order, err := orderClause(orderBy, "id", roleOrderColumns)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+roleColumns+` FROM roles `+order+` OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var roles []*identity.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, oops.Code("ROLE_LIST_FAILED").Wrap(err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").Wrap(err)
	}
	return roles, nil
}

// Update saves the role row.
func (r *RoleRepository) Update(ctx context.Context, role *identity.Role) (*identity.Role, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, role.ID, role.Name, role.Description, role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("ROLE_ALREADY_EXISTS").
				With("name", role.Name).
				Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("ROLE_UPDATE_FAILED").
			With("id", role.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return nil, oops.Code("ROLE_NOT_FOUND").
			With("id", role.ID).
			Wrap(identity.ErrNotFound)
	}
	return role, nil
}

// Delete removes a role. Deleting a role still referenced by users
// fails on the foreign key.
func (r *RoleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM roles WHERE id = $1
	`, id)
	if err != nil {
		return false, oops.Code("ROLE_DELETE_FAILED").
			With("id", id).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

func scanRole(row pgx.Row) (*identity.Role, error) {
	var (
		role        identity.Role
		description *string
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := row.Scan(&role.ID, &role.Name, &description, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ROLE_SCAN_FAILED").Wrap(err)
	}
	role.Description = description
	role.CreatedAt = createdAt
	role.UpdatedAt = updatedAt
	return &role, nil
}

// Compile-time interface check.
var _ identity.RoleRepository = (*RoleRepository)(nil)
