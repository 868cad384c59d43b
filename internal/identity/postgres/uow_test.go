// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/internal/identity/postgres"
	"github.com/wardenhq/warden/pkg/errutil"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock pool")
	t.Cleanup(mock.Close)
	return mock
}

func TestNewFactory(t *testing.T) {
	t.Run("nil pool rejected", func(t *testing.T) {
		factory, err := postgres.NewFactory(nil)
		require.Error(t, err)
		assert.Nil(t, factory)
		errutil.AssertErrorCode(t, err, "UOW_NIL_POOL")
	})
}

func TestFactory_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		mock := newMockPool(t)
		factory, err := postgres.NewFactory(mock)
		require.NoError(t, err)

		userID := ulid.Make()
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM users").
			WithArgs(userID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		var deleted bool
		err = factory.WithinTx(ctx, func(ctx context.Context, uow identity.UnitOfWork) error {
			ok, err := uow.Users().Delete(ctx, userID)
			deleted = ok
			return err
		})
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		mock := newMockPool(t)
		factory, err := postgres.NewFactory(mock)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = factory.WithinTx(ctx, func(ctx context.Context, uow identity.UnitOfWork) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure surfaces", func(t *testing.T) {
		mock := newMockPool(t)
		factory, err := postgres.NewFactory(mock)
		require.NoError(t, err)

		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		err = factory.WithinTx(ctx, func(ctx context.Context, uow identity.UnitOfWork) error {
			t.Fatal("fn must not run without a transaction")
			return nil
		})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TX_BEGIN_FAILED")
	})

	t.Run("commit failure surfaces", func(t *testing.T) {
		mock := newMockPool(t)
		factory, err := postgres.NewFactory(mock)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err = factory.WithinTx(ctx, func(ctx context.Context, uow identity.UnitOfWork) error {
			return nil
		})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TX_COMMIT_FAILED")
	})

	t.Run("repositories are cached per scope", func(t *testing.T) {
		mock := newMockPool(t)
		factory, err := postgres.NewFactory(mock)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err = factory.WithinTx(ctx, func(ctx context.Context, uow identity.UnitOfWork) error {
			assert.Same(t, uow.Users(), uow.Users())
			assert.Same(t, uow.Roles(), uow.Roles())
			assert.Same(t, uow.Permissions(), uow.Permissions())
			assert.Same(t, uow.RefreshTokens(), uow.RefreshTokens())
			return nil
		})
		require.NoError(t, err)
	})
}
