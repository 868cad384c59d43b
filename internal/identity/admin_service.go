// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AdminService provides administrative account management: bulk
// provisioning and user listing. Accounts created here are verified
// immediately; no verification email is sent.
type AdminService struct {
	uow    UnitOfWorkFactory
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(uow UnitOfWorkFactory, hasher PasswordHasher, logger *slog.Logger) *AdminService {
	return &AdminService{uow: uow, hasher: hasher, logger: logger}
}

// ProvisionUserInput describes one account to provision.
type ProvisionUserInput struct {
	Email    string
	Password string
	Fullname string
	Gender   Gender
	Role     string
}

// ProvisionUsers creates a batch of verified accounts in one
// transaction. Role names are resolved in a single query; an unknown
// role fails the whole batch.
func (s *AdminService) ProvisionUsers(ctx context.Context, inputs []ProvisionUserInput) ([]*User, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	// Hash all passwords before opening the transaction.
	hashes := make([]string, len(inputs))
	for i, in := range inputs {
		hash, err := s.hasher.Hash(ctx, in.Password)
		if err != nil {
			return nil, err
		}
		hashes[i] = hash
	}

	roleNames := make([]string, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if !seen[in.Role] {
			seen[in.Role] = true
			roleNames = append(roleNames, in.Role)
		}
	}

	var created []*User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		roles, err := uow.Roles().GetManyByNames(ctx, roleNames)
		if err != nil {
			return err
		}
		roleByName := make(map[string]*Role, len(roles))
		for _, r := range roles {
			roleByName[r.Name] = r
		}

		users := make([]*User, 0, len(inputs))
		for i, in := range inputs {
			role, ok := roleByName[in.Role]
			if !ok {
				return oops.Code("ROLE_NOT_FOUND").
					With("role", in.Role).
					Wrap(ErrNotFound)
			}
			u, err := NewUser(in.Email, hashes[i], in.Fullname, in.Gender, role.ID)
			if err != nil {
				return err
			}
			u.Verified = true
			users = append(users, u)
		}

		created, err = uow.Users().CreateMany(ctx, users)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "users provisioned", "count", len(created))
	return created, nil
}

// GetUser retrieves a user by ID.
func (s *AdminService) GetUser(ctx context.Context, id ulid.ULID) (*User, error) {
	var user *User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		u, err := uow.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers pages through users ordered by the given column.
func (s *AdminService) ListUsers(ctx context.Context, offset, limit int, orderBy string) ([]*User, error) {
	var users []*User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		us, err := uow.Users().GetAll(ctx, offset, limit, orderBy)
		if err != nil {
			return err
		}
		users = us
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user and, via the schema's cascade, their
// refresh tokens. Reports whether the user existed.
func (s *AdminService) DeleteUser(ctx context.Context, id ulid.ULID) (bool, error) {
	var deleted bool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		ok, err := uow.Users().Delete(ctx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		deleted = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
