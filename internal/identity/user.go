// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Gender is the self-reported gender of a user.
type Gender string

// Supported gender values.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the supported values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// User is a registered account. PasswordHash holds the adaptive hash of
// the password; the plaintext is never stored. VerifyTokenHash holds the
// SHA256 fingerprint of the emailed verification token and is cleared
// once the account is verified.
type User struct {
	ID                 ulid.ULID
	Email              string
	PasswordHash       string
	Fullname           string
	DOB                *time.Time
	Address            *string
	Gender             Gender
	Avatar             *string
	Verified           bool
	VerifyTokenHash    *string
	VerifyTokenExpires *time.Time
	RoleID             int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewUser creates a validated, unverified User with a fresh ULID.
// The caller supplies an already-hashed password.
func NewUser(email, passwordHash, fullname string, gender Gender, roleID int64) (*User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, oops.Code("USER_INVALID_EMAIL").
			With("email", email).
			Wrap(err)
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if fullname == "" {
		return nil, oops.Code("USER_INVALID_FULLNAME").Errorf("fullname cannot be empty")
	}
	if !gender.Valid() {
		return nil, oops.Code("USER_INVALID_GENDER").
			With("gender", string(gender)).
			Errorf("unsupported gender value")
	}
	if roleID <= 0 {
		return nil, oops.Code("USER_INVALID_ROLE").Errorf("role ID must be positive")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Fullname:     fullname,
		Gender:       gender,
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetVerifyToken stores the fingerprint of a freshly issued verification
// token together with its expiry.
func (u *User) SetVerifyToken(fingerprint string, expiresAt time.Time) {
	u.VerifyTokenHash = &fingerprint
	u.VerifyTokenExpires = &expiresAt
	u.UpdatedAt = time.Now().UTC()
}

// MarkVerified activates the account and clears the verification token
// so it cannot be replayed.
func (u *User) MarkVerified() {
	u.Verified = true
	u.VerifyTokenHash = nil
	u.VerifyTokenExpires = nil
	u.UpdatedAt = time.Now().UTC()
}
