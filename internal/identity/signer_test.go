// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/pkg/errutil"
)

func TestNewSigner(t *testing.T) {
	t.Run("empty secret rejected", func(t *testing.T) {
		signer, err := identity.NewSigner("", 0)
		require.Error(t, err)
		assert.Nil(t, signer)
		errutil.AssertErrorCode(t, err, "SIGNER_EMPTY_SECRET")
	})

	t.Run("non-positive leeway falls back to default", func(t *testing.T) {
		signer, err := identity.NewSigner("secret", -time.Second)
		require.NoError(t, err)
		require.NotNil(t, signer)
	})
}

func TestSigner_IssueVerify(t *testing.T) {
	signer, err := identity.NewSigner("test-secret", time.Second)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		token, err := signer.Issue("01J0000000000000000000TEST", time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		subject, err := signer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "01J0000000000000000000TEST", subject)
	})

	t.Run("empty subject rejected", func(t *testing.T) {
		_, err := signer.Issue("", time.Minute)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SIGNER_EMPTY_SUBJECT")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := signer.Issue("subject", -time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		errutil.AssertErrorKind(t, err, identity.ErrUnauthorized, "TOKEN_EXPIRED")
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := identity.NewSigner("another-secret", time.Second)
		require.NoError(t, err)
		token, err := other.Issue("subject", time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		errutil.AssertErrorKind(t, err, identity.ErrUnauthorized, "TOKEN_SIGNATURE_INVALID")
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := signer.Verify("not-a-token")
		errutil.AssertErrorKind(t, err, identity.ErrUnauthorized, "TOKEN_MALFORMED")
	})

	t.Run("leeway tolerates small skew", func(t *testing.T) {
		skewed, err := identity.NewSigner("test-secret", time.Hour)
		require.NoError(t, err)
		token, err := skewed.Issue("subject", -time.Minute)
		require.NoError(t, err)

		subject, err := skewed.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "subject", subject)
	})
}
