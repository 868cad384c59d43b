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

const refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked_at,
	       ip_address, user_agent, replaced_by, is_used, created_at, updated_at`

// RefreshTokenRepository implements identity.RefreshTokenRepository
// using PostgreSQL.
type RefreshTokenRepository struct {
	db querier
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(db querier) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh-token record.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *identity.RefreshToken) (*identity.RefreshToken, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, revoked_at,
			ip_address, user_agent, replaced_by, is_used, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		token.ID.String(),
		token.UserID.String(),
		token.TokenHash,
		token.ExpiresAt,
		token.RevokedAt,
		token.IPAddress,
		token.UserAgent,
		token.ReplacedBy,
		token.IsUsed,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("REFRESH_TOKEN_EXISTS").Wrap(identity.ErrDuplicateEntry)
		}
		return nil, oops.Code("REFRESH_TOKEN_CREATE_FAILED").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}
	return token, nil
}

// GetByID retrieves a record by ID.
func (r *RefreshTokenRepository) GetByID(ctx context.Context, id ulid.ULID) (*identity.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE id = $1
	`, id.String())

	token, err := scanRefreshToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").
			With("id", id.String()).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_GET_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return token, nil
}

// GetByTokenHash retrieves a record by its fingerprint.
func (r *RefreshTokenRepository) GetByTokenHash(ctx context.Context, fingerprint string) (*identity.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE token_hash = $1
	`, fingerprint)

	token, err := scanRefreshToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_GET_FAILED").Wrap(err)
	}
	return token, nil
}

// GetAllForUser lists a user's records, newest first.
func (r *RefreshTokenRepository) GetAllForUser(ctx context.Context, userID ulid.ULID) ([]*identity.RefreshToken, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`, userID.String())
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_LIST_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var tokens []*identity.RefreshToken
	for rows.Next() {
		token, err := scanRefreshToken(rows)
		if err != nil {
			return nil, oops.Code("REFRESH_TOKEN_LIST_FAILED").Wrap(err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("REFRESH_TOKEN_LIST_FAILED").Wrap(err)
	}
	return tokens, nil
}

// MarkUsed consumes a token during rotation. The is_used guard in the
// WHERE clause makes consumption atomic: a second attempt affects zero
// rows and reports ErrNotFound.
func (r *RefreshTokenRepository) MarkUsed(ctx context.Context, fingerprint, replacedBy string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET is_used = TRUE, replaced_by = $2, updated_at = $3
		WHERE token_hash = $1 AND is_used = FALSE
	`, fingerprint, replacedBy, time.Now().UTC())
	if err != nil {
		return oops.Code("REFRESH_TOKEN_MARK_USED_FAILED").Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	return nil
}

// Revoke invalidates a token. Revoking an unknown or already-revoked
// token reports ErrNotFound; callers decide whether that matters.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, fingerprint string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, updated_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, fingerprint, time.Now().UTC())
	if err != nil {
		return oops.Code("REFRESH_TOKEN_REVOKE_FAILED").Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	return nil
}

// RevokeAllForUser invalidates every active token of a user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, updated_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID.String(), time.Now().UTC())
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_REVOKE_ALL_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanRefreshToken(row pgx.Row) (*identity.RefreshToken, error) {
	var (
		idStr      string
		userIDStr  string
		tokenHash  string
		expiresAt  time.Time
		revokedAt  *time.Time
		ipAddress  string
		userAgent  string
		replacedBy *string
		isUsed     bool
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := row.Scan(
		&idStr,
		&userIDStr,
		&tokenHash,
		&expiresAt,
		&revokedAt,
		&ipAddress,
		&userAgent,
		&replacedBy,
		&isUsed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("REFRESH_TOKEN_SCAN_FAILED").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_USER_ID").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &identity.RefreshToken{
		ID:         id,
		UserID:     userID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		RevokedAt:  revokedAt,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		ReplacedBy: replacedBy,
		IsUsed:     isUsed,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// Compile-time interface check.
var _ identity.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
