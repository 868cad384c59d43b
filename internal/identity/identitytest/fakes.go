// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package identitytest provides in-memory fakes of the identity
// persistence contracts for unit tests. The fake unit of work stages
// writes against a copy of the store and swaps it in on commit, so
// rollback semantics match the real transaction behavior.
package identitytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/internal/mail"
)

// Store is an in-memory identity database.
type Store struct {
	mu   sync.Mutex
	data *data
}

type data struct {
	users      map[ulid.ULID]*identity.User
	roles      map[int64]*identity.Role
	perms      map[int64]*identity.Permission
	grants     map[[2]int64]bool // role ID, permission ID
	tokens     map[string]*identity.RefreshToken // by fingerprint
	nextRoleID int64
	nextPermID int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: newData()}
}

func newData() *data {
	return &data{
		users:      make(map[ulid.ULID]*identity.User),
		roles:      make(map[int64]*identity.Role),
		perms:      make(map[int64]*identity.Permission),
		grants:     make(map[[2]int64]bool),
		tokens:     make(map[string]*identity.RefreshToken),
		nextRoleID: 1,
		nextPermID: 1,
	}
}

func (d *data) clone() *data {
	c := newData()
	c.nextRoleID = d.nextRoleID
	c.nextPermID = d.nextPermID
	for id, u := range d.users {
		cp := *u
		c.users[id] = &cp
	}
	for id, r := range d.roles {
		cp := *r
		c.roles[id] = &cp
	}
	for id, p := range d.perms {
		cp := *p
		c.perms[id] = &cp
	}
	for k, v := range d.grants {
		c.grants[k] = v
	}
	for k, t := range d.tokens {
		cp := *t
		c.tokens[k] = &cp
	}
	return c
}

// SeedRole inserts a role directly, bypassing transactions.
func (s *Store) SeedRole(name string) *identity.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := &identity.Role{
		ID:        s.data.nextRoleID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.data.nextRoleID++
	s.data.roles[role.ID] = role
	return role
}

// SeedPermission inserts a permission and optionally grants it to roles.
func (s *Store) SeedPermission(name string, roleIDs ...int64) *identity.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	perm := &identity.Permission{
		ID:        s.data.nextPermID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.data.nextPermID++
	s.data.perms[perm.ID] = perm
	for _, roleID := range roleIDs {
		s.data.grants[[2]int64{roleID, perm.ID}] = true
	}
	return perm
}

// SeedUser inserts a user directly, bypassing transactions.
func (s *Store) SeedUser(user *identity.User) *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.data.users[cp.ID] = &cp
	return &cp
}

// SeedRefreshToken inserts a refresh-token record directly.
func (s *Store) SeedRefreshToken(token *identity.RefreshToken) *identity.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.data.tokens[cp.TokenHash] = &cp
	return &cp
}

// User returns a copy of the stored user, or nil.
func (s *Store) User(id ulid.ULID) *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// UserByEmail returns a copy of the stored user with the email, or nil.
func (s *Store) UserByEmail(email string) *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.Email == email {
			cp := *u
			return &cp
		}
	}
	return nil
}

// RefreshToken returns a copy of the record with the fingerprint, or nil.
func (s *Store) RefreshToken(fingerprint string) *identity.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.tokens[fingerprint]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// RefreshTokenCount returns the number of stored records.
func (s *Store) RefreshTokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.tokens)
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.users)
}

// Factory implements identity.UnitOfWorkFactory against a Store.
// A non-nil BeginErr fails every WithinTx call, simulating an
// unavailable database.
type Factory struct {
	Store    *Store
	BeginErr error
}

// NewFactory creates a Factory over a fresh Store.
func NewFactory() *Factory {
	return &Factory{Store: NewStore()}
}

// WithinTx stages fn against a copy of the store and swaps the copy in
// only when fn succeeds. Errors discard every staged write.
func (f *Factory) WithinTx(ctx context.Context, fn func(ctx context.Context, uow identity.UnitOfWork) error) error {
	if f.BeginErr != nil {
		return f.BeginErr
	}

	f.Store.mu.Lock()
	defer f.Store.mu.Unlock()

	staged := f.Store.data.clone()
	if err := fn(ctx, &unitOfWork{d: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Store.data = staged
	return nil
}

type unitOfWork struct {
	d *data
}

func (u *unitOfWork) Users() identity.UserRepository                 { return &userRepo{d: u.d} }
func (u *unitOfWork) Roles() identity.RoleRepository                 { return &roleRepo{d: u.d} }
func (u *unitOfWork) Permissions() identity.PermissionRepository     { return &permRepo{d: u.d} }
func (u *unitOfWork) RefreshTokens() identity.RefreshTokenRepository { return &tokenRepo{d: u.d} }

type userRepo struct {
	d *data
}

func (r *userRepo) Create(_ context.Context, user *identity.User) (*identity.User, error) {
	for _, u := range r.d.users {
		if u.Email == user.Email {
			return nil, oops.Code("EMAIL_ALREADY_EXISTS").Wrap(identity.ErrDuplicateEntry)
		}
	}
	cp := *user
	r.d.users[cp.ID] = &cp
	return user, nil
}

func (r *userRepo) CreateMany(ctx context.Context, users []*identity.User) ([]*identity.User, error) {
	created := make([]*identity.User, 0, len(users))
	for _, u := range users {
		c, err := r.Create(ctx, u)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

func (r *userRepo) GetByID(_ context.Context, id ulid.ULID) (*identity.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range r.d.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(identity.ErrNotFound)
}

func (r *userRepo) GetByVerifyTokenHash(_ context.Context, fingerprint string) (*identity.User, error) {
	for _, u := range r.d.users {
		if u.VerifyTokenHash != nil && *u.VerifyTokenHash == fingerprint {
			cp := *u
			return &cp, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(identity.ErrNotFound)
}

func (r *userRepo) GetAll(_ context.Context, offset, limit int, _ string) ([]*identity.User, error) {
	all := make([]*identity.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.Compare(all[j].ID) < 0 })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *userRepo) Update(_ context.Context, user *identity.User) (*identity.User, error) {
	if _, ok := r.d.users[user.ID]; !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	cp := *user
	r.d.users[cp.ID] = &cp
	return user, nil
}

func (r *userRepo) Delete(_ context.Context, id ulid.ULID) (bool, error) {
	if _, ok := r.d.users[id]; !ok {
		return false, nil
	}
	delete(r.d.users, id)
	for hash, t := range r.d.tokens {
		if t.UserID.Compare(id) == 0 {
			delete(r.d.tokens, hash)
		}
	}
	return true, nil
}

type roleRepo struct {
	d *data
}

func (r *roleRepo) Create(_ context.Context, role *identity.Role) (*identity.Role, error) {
	for _, existing := range r.d.roles {
		if existing.Name == role.Name {
			return nil, oops.Code("ROLE_ALREADY_EXISTS").Wrap(identity.ErrDuplicateEntry)
		}
	}
	role.ID = r.d.nextRoleID
	r.d.nextRoleID++
	cp := *role
	r.d.roles[cp.ID] = &cp
	return role, nil
}

func (r *roleRepo) CreateMany(ctx context.Context, roles []*identity.Role) ([]*identity.Role, error) {
	created := make([]*identity.Role, 0, len(roles))
	for _, role := range roles {
		c, err := r.Create(ctx, role)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

func (r *roleRepo) GetByID(_ context.Context, id int64) (*identity.Role, error) {
	role, ok := r.d.roles[id]
	if !ok {
		return nil, oops.Code("ROLE_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	cp := *role
	return &cp, nil
}

func (r *roleRepo) GetByName(_ context.Context, name string) (*identity.Role, error) {
	for _, role := range r.d.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, oops.Code("ROLE_NOT_FOUND").Wrap(identity.ErrNotFound)
}

func (r *roleRepo) GetManyByNames(_ context.Context, names []string) ([]*identity.Role, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var roles []*identity.Role
	for _, role := range r.d.roles {
		if wanted[role.Name] {
			cp := *role
			roles = append(roles, &cp)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (r *roleRepo) GetAll(_ context.Context, offset, limit int, _ string) ([]*identity.Role, error) {
	all := make([]*identity.Role, 0, len(r.d.roles))
	for _, role := range r.d.roles {
		cp := *role
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *roleRepo) Update(_ context.Context, role *identity.Role) (*identity.Role, error) {
	if _, ok := r.d.roles[role.ID]; !ok {
		return nil, oops.Code("ROLE_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	cp := *role
	r.d.roles[cp.ID] = &cp
	return role, nil
}

func (r *roleRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := r.d.roles[id]; !ok {
		return false, nil
	}
	delete(r.d.roles, id)
	return true, nil
}

type permRepo struct {
	d *data
}

func (r *permRepo) Create(_ context.Context, perm *identity.Permission) (*identity.Permission, error) {
	for _, existing := range r.d.perms {
		if existing.Name == perm.Name {
			return nil, oops.Code("PERMISSION_ALREADY_EXISTS").Wrap(identity.ErrDuplicateEntry)
		}
	}
	perm.ID = r.d.nextPermID
	r.d.nextPermID++
	cp := *perm
	r.d.perms[cp.ID] = &cp
	return perm, nil
}

func (r *permRepo) CreateMany(ctx context.Context, perms []*identity.Permission) ([]*identity.Permission, error) {
	created := make([]*identity.Permission, 0, len(perms))
	for _, p := range perms {
		c, err := r.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

func (r *permRepo) GetByID(_ context.Context, id int64) (*identity.Permission, error) {
	p, ok := r.d.perms[id]
	if !ok {
		return nil, oops.Code("PERMISSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *permRepo) GetByName(_ context.Context, name string) (*identity.Permission, error) {
	for _, p := range r.d.perms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, oops.Code("PERMISSION_NOT_FOUND").Wrap(identity.ErrNotFound)
}

func (r *permRepo) GetAll(_ context.Context, offset, limit int, _ string) ([]*identity.Permission, error) {
	all := make([]*identity.Permission, 0, len(r.d.perms))
	for _, p := range r.d.perms {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *permRepo) Update(_ context.Context, perm *identity.Permission) (*identity.Permission, error) {
	if _, ok := r.d.perms[perm.ID]; !ok {
		return nil, oops.Code("PERMISSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	cp := *perm
	r.d.perms[cp.ID] = &cp
	return perm, nil
}

func (r *permRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := r.d.perms[id]; !ok {
		return false, nil
	}
	delete(r.d.perms, id)
	for k := range r.d.grants {
		if k[1] == id {
			delete(r.d.grants, k)
		}
	}
	return true, nil
}

func (r *permRepo) GrantToRole(_ context.Context, roleID, permissionID int64) error {
	r.d.grants[[2]int64{roleID, permissionID}] = true
	return nil
}

func (r *permRepo) RevokeFromRole(_ context.Context, roleID, permissionID int64) (bool, error) {
	key := [2]int64{roleID, permissionID}
	if !r.d.grants[key] {
		return false, nil
	}
	delete(r.d.grants, key)
	return true, nil
}

func (r *permRepo) RoleHasPermission(_ context.Context, roleID int64, permission string) (bool, error) {
	for _, p := range r.d.perms {
		if p.Name == permission && r.d.grants[[2]int64{roleID, p.ID}] {
			return true, nil
		}
	}
	return false, nil
}

type tokenRepo struct {
	d *data
}

func (r *tokenRepo) Create(_ context.Context, token *identity.RefreshToken) (*identity.RefreshToken, error) {
	if _, exists := r.d.tokens[token.TokenHash]; exists {
		return nil, oops.Code("REFRESH_TOKEN_EXISTS").Wrap(identity.ErrDuplicateEntry)
	}
	cp := *token
	r.d.tokens[cp.TokenHash] = &cp
	return token, nil
}

func (r *tokenRepo) GetByID(_ context.Context, id ulid.ULID) (*identity.RefreshToken, error) {
	for _, t := range r.d.tokens {
		if t.ID.Compare(id) == 0 {
			cp := *t
			return &cp, nil
		}
	}
	return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(identity.ErrNotFound)
}

func (r *tokenRepo) GetByTokenHash(_ context.Context, fingerprint string) (*identity.RefreshToken, error) {
	t, ok := r.d.tokens[fingerprint]
	if !ok {
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *tokenRepo) GetAllForUser(_ context.Context, userID ulid.ULID) ([]*identity.RefreshToken, error) {
	var tokens []*identity.RefreshToken
	for _, t := range r.d.tokens {
		if t.UserID.Compare(userID) == 0 {
			cp := *t
			tokens = append(tokens, &cp)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].CreatedAt.After(tokens[j].CreatedAt) })
	return tokens, nil
}

func (r *tokenRepo) MarkUsed(_ context.Context, fingerprint, replacedBy string) error {
	t, ok := r.d.tokens[fingerprint]
	if !ok || t.IsUsed {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	t.IsUsed = true
	t.ReplacedBy = &replacedBy
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *tokenRepo) Revoke(_ context.Context, fingerprint string) error {
	t, ok := r.d.tokens[fingerprint]
	if !ok || t.RevokedAt != nil {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	t.UpdatedAt = now
	return nil
}

func (r *tokenRepo) RevokeAllForUser(_ context.Context, userID ulid.ULID) (int64, error) {
	now := time.Now().UTC()
	var revoked int64
	for _, t := range r.d.tokens {
		if t.UserID.Compare(userID) == 0 && t.RevokedAt == nil {
			t.RevokedAt = &now
			t.UpdatedAt = now
			revoked++
		}
	}
	return revoked, nil
}

// RecorderMailer implements mail.Mailer and records enqueued messages.
type RecorderMailer struct {
	mu       sync.Mutex
	Messages []mail.Message
	Err      error
}

// Enqueue records the message, or returns the configured error.
func (m *RecorderMailer) Enqueue(_ context.Context, msg mail.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return nil
}

// Sent returns a snapshot of recorded messages.
func (m *RecorderMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// Compile-time interface checks.
var (
	_ identity.UnitOfWorkFactory      = (*Factory)(nil)
	_ identity.UnitOfWork             = (*unitOfWork)(nil)
	_ identity.UserRepository         = (*userRepo)(nil)
	_ identity.RoleRepository         = (*roleRepo)(nil)
	_ identity.PermissionRepository   = (*permRepo)(nil)
	_ identity.RefreshTokenRepository = (*tokenRepo)(nil)
	_ mail.Mailer                     = (*RecorderMailer)(nil)
)
