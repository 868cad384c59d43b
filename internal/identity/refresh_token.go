// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RefreshToken is the server-side record of an issued refresh token.
// Only the SHA256 fingerprint of the signed token is stored; the signed
// token itself lives on the client. Rows are retained after use so the
// ReplacedBy chain forms an audit trail of rotations.
type RefreshToken struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	IPAddress  string
	UserAgent  string
	ReplacedBy *string // fingerprint of the token issued in its place
	IsUsed     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewRefreshToken creates a validated RefreshToken record with a fresh
// ULID. Meta fields are optional and may be empty.
func NewRefreshToken(userID ulid.ULID, tokenHash string, expiresAt time.Time, meta RequestMeta) (*RefreshToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now().UTC()
	return &RefreshToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive reports whether the token can still be redeemed at t:
// not yet used, not revoked, and not past its expiry.
func (r *RefreshToken) IsActive(t time.Time) bool {
	return !r.IsUsed && r.RevokedAt == nil && t.Before(r.ExpiresAt)
}
