// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultLeeway is the clock-skew tolerance applied when validating
// token timestamps.
const DefaultLeeway = 30 * time.Second

// Signer issues and verifies HMAC-SHA256 signed tokens carrying a
// subject, issued-at, and expiry claim. Access and refresh tokens share
// the same structure and differ only in lifetime.
type Signer struct {
	secret []byte
	leeway time.Duration
}

// NewSigner creates a Signer from a shared secret. A non-positive
// leeway falls back to DefaultLeeway.
func NewSigner(secret string, leeway time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, oops.Code("SIGNER_EMPTY_SECRET").Errorf("signing secret cannot be empty")
	}
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	return &Signer{secret: []byte(secret), leeway: leeway}, nil
}

// Issue signs a token for the subject valid for ttl from now.
func (s *Signer) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", oops.Code("SIGNER_EMPTY_SUBJECT").Errorf("token subject cannot be empty")
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", oops.Code("SIGNER_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify validates the token's signature and timestamps and returns its
// subject. Every failure satisfies errors.Is(err, ErrUnauthorized);
// the oops code distinguishes expiry from signature and structural
// failures for logging.
func (s *Signer) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", oops.Code("TOKEN_EXPIRED").
				With("cause", err.Error()).
				Wrap(ErrUnauthorized)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", oops.Code("TOKEN_SIGNATURE_INVALID").
				With("cause", err.Error()).
				Wrap(ErrUnauthorized)
		default:
			return "", oops.Code("TOKEN_MALFORMED").
				With("cause", err.Error()).
				Wrap(ErrUnauthorized)
		}
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", oops.Code("TOKEN_MALFORMED").
			With("cause", "missing subject claim").
			Wrap(ErrUnauthorized)
	}
	return subject, nil
}
