// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	wmail "github.com/wardenhq/warden/internal/mail"
)

// AuthConfig carries the tunable lifetimes and deployment values of the
// authentication flows.
type AuthConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	VerifyTokenTTL  time.Duration

	// DefaultRole is attached to every registration. It must exist in
	// the database; a missing default role is a deployment fault.
	DefaultRole string

	// VerifyURL is the base URL embedded in verification emails.
	VerifyURL string
}

// TokenPair is an access token and its companion refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates registration, verification, login, and
// token rotation. Each operation runs its persistence inside a single
// unit of work; email is enqueued only after the transaction commits.
type AuthService struct {
	uow     UnitOfWorkFactory
	hasher  PasswordHasher
	signer  *Signer
	mailer  wmail.Mailer
	cfg     AuthConfig
	logger  *slog.Logger
	metrics *Metrics
}

// NewAuthService creates an AuthService. Metrics may be nil.
func NewAuthService(uow UnitOfWorkFactory, hasher PasswordHasher, signer *Signer, mailer wmail.Mailer, cfg AuthConfig, logger *slog.Logger, metrics *Metrics) *AuthService {
	return &AuthService{
		uow:     uow,
		hasher:  hasher,
		signer:  signer,
		mailer:  mailer,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// dummyPasswordHash is verified when a login targets an unknown email so
// response time does not reveal whether the account exists. It is not a
// real credential; the digest portion cannot match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$2a$11$....................................................."

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email    string
	Password string
	Fullname string
	Gender   Gender
	DOB      *time.Time
	Address  *string
}

// Register creates an unverified account with the default role and
// emails a verification token. The duplicate-email pre-check runs in
// the same transaction as the insert; the unique constraint remains the
// authoritative guard against races.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, oops.Code("USER_INVALID_EMAIL").
			With("email", in.Email).
			Wrap(err)
	}

	// Hash before opening the transaction; bcrypt is too slow to run
	// while holding a database connection.
	passwordHash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	verifyToken, fingerprint, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	var user *User
	err = s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if _, err := uow.Users().GetByEmail(ctx, in.Email); err == nil {
			return oops.Code("EMAIL_ALREADY_EXISTS").
				With("email", in.Email).
				Wrap(ErrDuplicateEntry)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		role, err := uow.Roles().GetByName(ctx, s.cfg.DefaultRole)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("CONFIG_DEFAULT_ROLE_MISSING").
					With("role", s.cfg.DefaultRole).
					Wrap(ErrSystemConfig)
			}
			return err
		}

		u, err := NewUser(in.Email, passwordHash, in.Fullname, in.Gender, role.ID)
		if err != nil {
			return err
		}
		u.DOB = in.DOB
		u.Address = in.Address
		u.SetVerifyToken(fingerprint, time.Now().UTC().Add(s.cfg.VerifyTokenTTL))

		created, err := uow.Users().Create(ctx, u)
		if err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		s.metrics.recordRegistration(outcomeFailure)
		return nil, err
	}

	s.metrics.recordRegistration(outcomeSuccess)
	s.enqueueVerificationMail(ctx, user.Email, verifyToken)

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"email", user.Email,
	)
	return user, nil
}

// VerifyAccount activates the account holding the presented
// verification token. The token is located by fingerprint; expired
// tokens leave the account unverified.
func (s *AuthService) VerifyAccount(ctx context.Context, token string) error {
	if token == "" {
		s.metrics.recordVerification(outcomeFailure)
		return oops.Code("EMAIL_VERIFICATION_FAILED").Wrap(ErrTokenInvalid)
	}

	fingerprint := Fingerprint(token)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		user, err := uow.Users().GetByVerifyTokenHash(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("EMAIL_VERIFICATION_FAILED").Wrap(ErrTokenInvalid)
			}
			return err
		}

		if err := CheckFingerprint(token, *user.VerifyTokenHash, *user.VerifyTokenExpires, time.Now().UTC()); err != nil {
			return err
		}

		user.MarkVerified()
		_, err = uow.Users().Update(ctx, user)
		return err
	})
	if err != nil {
		s.metrics.recordVerification(outcomeFailure)
		return err
	}

	s.metrics.recordVerification(outcomeSuccess)
	return nil
}

// ResendVerification issues a fresh verification token for an
// unverified account, replacing any previous one.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	verifyToken, fingerprint, err := GenerateOpaqueToken()
	if err != nil {
		return err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		user, err := uow.Users().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("USER_NOT_FOUND").
					With("email", email).
					Wrap(ErrNotFound)
			}
			return err
		}
		if user.Verified {
			return oops.Code("EMAIL_ALREADY_VERIFIED").
				With("email", email).
				Wrap(ErrAlreadyVerified)
		}

		user.SetVerifyToken(fingerprint, time.Now().UTC().Add(s.cfg.VerifyTokenTTL))
		_, err = uow.Users().Update(ctx, user)
		return err
	})
	if err != nil {
		return err
	}

	s.enqueueVerificationMail(ctx, email, verifyToken)
	return nil
}

// Login verifies credentials and issues a token pair. The refresh
// token's fingerprint is persisted with the client metadata from the
// context. Unknown emails still pay the cost of a hash verification so
// response time does not enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		user, err := uow.Users().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.hasher.Verify(ctx, password, dummyPasswordHash)
				return oops.Code("USER_NOT_FOUND").
					With("email", email).
					Wrap(ErrNotFound)
			}
			return err
		}

		if !s.hasher.Verify(ctx, password, user.PasswordHash) {
			return oops.Code("LOGIN_FAILED").Wrap(ErrUnauthorized)
		}
		if !user.Verified {
			return oops.Code("ACCOUNT_NOT_YET_ACTIVE").Wrap(ErrForbidden)
		}

		p, record, err := s.issueTokenPair(ctx, user.ID)
		if err != nil {
			return err
		}
		if _, err := uow.RefreshTokens().Create(ctx, record); err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		s.metrics.recordLogin(outcomeFailure)
		return nil, err
	}

	s.metrics.recordLogin(outcomeSuccess)
	s.logger.InfoContext(ctx, "user logged in", "email", email)
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed and
// a new pair is issued. A token that was already consumed or revoked is
// rejected, which makes replay of a stolen token detectable.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.signer.Verify(refreshToken)
	if err != nil {
		s.metrics.recordRefresh(outcomeFailure)
		return nil, err
	}
	userID, err := ulid.Parse(subject)
	if err != nil {
		s.metrics.recordRefresh(outcomeFailure)
		return nil, oops.Code("TOKEN_MALFORMED").
			With("subject", subject).
			Wrap(ErrUnauthorized)
	}

	fingerprint := Fingerprint(refreshToken)
	var pair *TokenPair
	err = s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		record, err := uow.RefreshTokens().GetByTokenHash(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("INVALID_TOKEN").Wrap(ErrUnauthorized)
			}
			return err
		}
		if record.UserID.Compare(userID) != 0 {
			return oops.Code("INVALID_TOKEN").Wrap(ErrUnauthorized)
		}
		if !record.IsActive(time.Now().UTC()) {
			return oops.Code("TOKEN_NO_LONGER_ACTIVE").
				With("used", record.IsUsed).
				With("revoked", record.RevokedAt != nil).
				Wrap(ErrUnauthorized)
		}

		p, next, err := s.issueTokenPair(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := uow.RefreshTokens().Create(ctx, next); err != nil {
			return err
		}
		if err := uow.RefreshTokens().MarkUsed(ctx, fingerprint, next.TokenHash); err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		s.metrics.recordRefresh(outcomeFailure)
		return nil, err
	}

	s.metrics.recordRefresh(outcomeSuccess)
	return pair, nil
}

// Logout revokes the presented refresh token. Revoking a token that is
// unknown or already revoked is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	fingerprint := Fingerprint(refreshToken)
	return s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := uow.RefreshTokens().Revoke(ctx, fingerprint); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	})
}

// RevokeAllSessions invalidates every active refresh token of a user,
// e.g. after a password change. Returns the number revoked.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID ulid.ULID) (int64, error) {
	var revoked int64
	err := s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		n, err := uow.RefreshTokens().RevokeAllForUser(ctx, userID)
		if err != nil {
			return err
		}
		revoked = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}

// issueTokenPair signs the access and refresh tokens in parallel and
// builds the persistence record for the refresh token.
func (s *AuthService) issueTokenPair(ctx context.Context, userID ulid.ULID) (*TokenPair, *RefreshToken, error) {
	var access, refresh string
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.signer.Issue(userID.String(), s.cfg.AccessTokenTTL)
		access = t
		return err
	})
	g.Go(func() error {
		t, err := s.signer.Issue(userID.String(), s.cfg.RefreshTokenTTL)
		refresh = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	record, err := NewRefreshToken(
		userID,
		Fingerprint(refresh),
		time.Now().UTC().Add(s.cfg.RefreshTokenTTL),
		RequestMetaFromContext(ctx),
	)
	if err != nil {
		return nil, nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, record, nil
}

// enqueueVerificationMail hands the verification email to the mailer.
// Failures are logged, never surfaced; the account state has already
// committed and the user can request a resend.
func (s *AuthService) enqueueVerificationMail(ctx context.Context, email, token string) {
	msg := wmail.Message{
		To:       email,
		Subject:  "Verify your account",
		Template: wmail.TemplateVerifyAccount,
		Data: map[string]string{
			"token":      token,
			"verify_url": s.cfg.VerifyURL + "?token=" + token,
		},
	}
	if err := s.mailer.Enqueue(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue verification mail",
			"email", email,
			"error", err,
		)
	}
}
