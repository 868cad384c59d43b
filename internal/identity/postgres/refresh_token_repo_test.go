// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/internal/identity/postgres"
	"github.com/wardenhq/warden/pkg/errutil"
)

var refreshTokenRowColumns = []string{
	"id", "user_id", "token_hash", "expires_at", "revoked_at",
	"ip_address", "user_agent", "replaced_by", "is_used", "created_at", "updated_at",
}

func testRefreshToken(t *testing.T) *identity.RefreshToken {
	t.Helper()
	token, err := identity.NewRefreshToken(
		ulid.Make(),
		identity.Fingerprint("some-refresh-token"),
		time.Now().UTC().Add(time.Hour),
		identity.RequestMeta{IPAddress: "203.0.113.1", UserAgent: "test-agent"},
	)
	require.NoError(t, err)
	return token
}

func refreshTokenRow(token *identity.RefreshToken) *pgxmock.Rows {
	return pgxmock.NewRows(refreshTokenRowColumns).AddRow(
		token.ID.String(), token.UserID.String(), token.TokenHash, token.ExpiresAt,
		token.RevokedAt, token.IPAddress, token.UserAgent, token.ReplacedBy,
		token.IsUsed, token.CreatedAt, token.UpdatedAt,
	)
}

func TestRefreshTokenRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts record", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)
		token := testRefreshToken(t)

		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(token.ID.String(), token.UserID.String(), token.TokenHash,
				token.ExpiresAt, token.RevokedAt, token.IPAddress, token.UserAgent,
				token.ReplacedBy, token.IsUsed, token.CreatedAt, token.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		created, err := repo.Create(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, token, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate fingerprint", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)
		token := testRefreshToken(t)

		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(token.ID.String(), token.UserID.String(), token.TokenHash,
				token.ExpiresAt, token.RevokedAt, token.IPAddress, token.UserAgent,
				token.ReplacedBy, token.IsUsed, token.CreatedAt, token.UpdatedAt).
			WillReturnError(uniqueViolation("refresh_tokens_token_hash_key"))

		_, err := repo.Create(ctx, token)
		errutil.AssertErrorKind(t, err, identity.ErrDuplicateEntry, "REFRESH_TOKEN_EXISTS")
	})
}

func TestRefreshTokenRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)
		token := testRefreshToken(t)

		mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
			WithArgs(token.TokenHash).
			WillReturnRows(refreshTokenRow(token))

		got, err := repo.GetByTokenHash(ctx, token.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, token.ID, got.ID)
		assert.Equal(t, token.UserID, got.UserID)
		assert.False(t, got.IsUsed)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
			WithArgs("unknown-fingerprint").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByTokenHash(ctx, "unknown-fingerprint")
		errutil.AssertErrorKind(t, err, identity.ErrNotFound, "REFRESH_TOKEN_NOT_FOUND")
	})
}

func TestRefreshTokenRepository_GetAllForUser(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := postgres.NewRefreshTokenRepository(mock)
	token := testRefreshToken(t)

	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
		WithArgs(token.UserID.String()).
		WillReturnRows(refreshTokenRow(token))

	tokens, err := repo.GetAllForUser(ctx, token.UserID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, token.TokenHash, tokens[0].TokenHash)
}

func TestRefreshTokenRepository_MarkUsed(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes active token", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)

		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("old-fingerprint", "new-fingerprint", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.MarkUsed(ctx, "old-fingerprint", "new-fingerprint"))
	})

	t.Run("second consumption rejected", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)

		// The is_used guard means the update affects zero rows.
		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("old-fingerprint", "new-fingerprint", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.MarkUsed(ctx, "old-fingerprint", "new-fingerprint")
		errutil.AssertErrorKind(t, err, identity.ErrNotFound, "REFRESH_TOKEN_NOT_FOUND")
	})
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes active token", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)

		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("fingerprint", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Revoke(ctx, "fingerprint"))
	})

	t.Run("already revoked reports not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRefreshTokenRepository(mock)

		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("fingerprint", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Revoke(ctx, "fingerprint")
		errutil.AssertErrorKind(t, err, identity.ErrNotFound, "REFRESH_TOKEN_NOT_FOUND")
	})
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := postgres.NewRefreshTokenRepository(mock)
	userID := ulid.Make()

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(userID.String(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	revoked, err := repo.RevokeAllForUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)
}
