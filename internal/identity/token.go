// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// OpaqueTokenBytes is the entropy of opaque tokens. 32 bytes encode to
// 64 hex characters.
const OpaqueTokenBytes = 32

// GenerateOpaqueToken creates a secure random token and its SHA256
// fingerprint. The plaintext token is sent to the user (for example in
// a verification email); only the fingerprint is persisted.
func GenerateOpaqueToken() (token, fingerprint string, err error) {
	buf := make([]byte, OpaqueTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", OpaqueTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(buf)
	return token, Fingerprint(token), nil
}

// Fingerprint computes the hex-encoded SHA256 digest of a token. The
// digest is what repositories store and look up; it is deterministic so
// a presented token can be located by exact match.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// CheckFingerprint verifies a presented token against a stored
// fingerprint and expiry. The comparison is constant-time. A mismatch
// yields ErrTokenInvalid; a match past its expiry yields ErrTokenExpired.
func CheckFingerprint(token, stored string, expiresAt, now time.Time) error {
	if token == "" || stored == "" {
		return oops.Code("TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}

	computed := Fingerprint(token)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) != 1 {
		return oops.Code("TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}
	if now.After(expiresAt) {
		return oops.Code("TOKEN_EXPIRED").
			With("expired_at", expiresAt).
			Wrap(ErrTokenExpired)
	}
	return nil
}
