// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/wardenhq/warden/internal/identity"
)

const userColumns = `id, email, password_hash, fullname, dob, address, gender, avatar,
	       verified, verify_token_hash, verify_token_expires, role_id, created_at, updated_at`

// userOrderColumns are the columns GetAll may order by.
var userOrderColumns = map[string]bool{
	"email":      true,
	"fullname":   true,
	"created_at": true,
	"updated_at": true,
}

// UserRepository implements identity.UserRepository using PostgreSQL.
type UserRepository struct {
	db querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db querier) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user. A duplicate email surfaces as
// identity.ErrDuplicateEntry regardless of any pre-check the caller ran.
func (r *UserRepository) Create(ctx context.Context, user *identity.User) (*identity.User, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, fullname, dob, address, gender, avatar,
			verified, verify_token_hash, verify_token_expires, role_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.Fullname,
		user.DOB,
		user.Address,
		string(user.Gender),
		user.Avatar,
		user.Verified,
		user.VerifyTokenHash,
		user.VerifyTokenExpires,
		user.RoleID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("EMAIL_ALREADY_EXISTS").
				With("email", user.Email).
				Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return user, nil
}

// CreateMany inserts a batch of users in a single statement. An empty
// batch returns immediately without a round trip.
func (r *UserRepository) CreateMany(ctx context.Context, users []*identity.User) ([]*identity.User, error) {
	if len(users) == 0 {
		return []*identity.User{}, nil
	}

	const cols = 14
	args := make([]any, 0, len(users)*cols)
	for _, u := range users {
		args = append(args,
			u.ID.String(), u.Email, u.PasswordHash, u.Fullname, u.DOB, u.Address,
			string(u.Gender), u.Avatar, u.Verified, u.VerifyTokenHash,
			u.VerifyTokenExpires, u.RoleID, u.CreatedAt, u.UpdatedAt,
		)
	}

	sql := `
		INSERT INTO users (
			id, email, password_hash, fullname, dob, address, gender, avatar,
			verified, verify_token_hash, verify_token_expires, role_id, created_at, updated_at
		) VALUES ` + valuesClause(len(users), cols)

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("EMAIL_ALREADY_EXISTS").Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("USER_CREATE_MANY_FAILED").
			With("operation", "insert users").
			With("count", len(users)).
			Wrap(err)
	}
	return users, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*identity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email match.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// GetByVerifyTokenHash retrieves the user holding the verification
// fingerprint.
func (r *UserRepository) GetByVerifyTokenHash(ctx context.Context, fingerprint string) (*identity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE verify_token_hash = $1
	`, fingerprint)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_TOKEN_FAILED").Wrap(err)
	}
	return user, nil
}

// GetAll pages through users. An empty orderBy yields a stable order by
// ID.
func (r *UserRepository) GetAll(ctx context.Context, offset, limit int, orderBy string) ([]*identity.User, error) {
	order, err := orderClause(orderBy, "id", userOrderColumns)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		`+order+`
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("offset", offset).
			With("limit", limit).
			Wrap(err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").Wrap(err)
	}
	return users, nil
}

// Update saves the full user row.
func (r *UserRepository) Update(ctx context.Context, user *identity.User) (*identity.User, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET
			email = $2,
			password_hash = $3,
			fullname = $4,
			dob = $5,
			address = $6,
			gender = $7,
			avatar = $8,
			verified = $9,
			verify_token_hash = $10,
			verify_token_expires = $11,
			role_id = $12,
			updated_at = $13
		WHERE id = $1
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.Fullname,
		user.DOB,
		user.Address,
		string(user.Gender),
		user.Avatar,
		user.Verified,
		user.VerifyTokenHash,
		user.VerifyTokenExpires,
		user.RoleID,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("EMAIL_ALREADY_EXISTS").
				With("email", user.Email).
				Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("id", user.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", user.ID.String()).
			Wrap(identity.ErrNotFound)
	}
	return user, nil
}

// Delete removes a user, reporting whether a row was deleted. The
// schema cascades to the user's refresh tokens.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) (bool, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM users WHERE id = $1
	`, id.String())
	if err != nil {
		return false, oops.Code("USER_DELETE_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*identity.User, error) {
	var (
		idStr              string
		email              string
		passwordHash       string
		fullname           string
		dob                *time.Time
		address            *string
		gender             string
		avatar             *string
		verified           bool
		verifyTokenHash    *string
		verifyTokenExpires *time.Time
		roleID             int64
		createdAt          time.Time
		updatedAt          time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&passwordHash,
		&fullname,
		&dob,
		&address,
		&gender,
		&avatar,
		&verified,
		&verifyTokenHash,
		&verifyTokenExpires,
		&roleID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &identity.User{
		ID:                 id,
		Email:              email,
		PasswordHash:       passwordHash,
		Fullname:           fullname,
		DOB:                dob,
		Address:            address,
		Gender:             identity.Gender(gender),
		Avatar:             avatar,
		Verified:           verified,
		VerifyTokenHash:    verifyTokenHash,
		VerifyTokenExpires: verifyTokenExpires,
		RoleID:             roleID,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

// Compile-time interface check.
var _ identity.UserRepository = (*UserRepository)(nil)
