// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import (
	"time"

	"github.com/samber/oops"
)

// Role names seeded by default. Every registration attaches the default
// role; deployments may add more.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Role groups permissions. Users reference exactly one role.
type Role struct {
	ID          int64
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRole creates a validated Role. The ID is assigned on insert.
func NewRole(name string, description *string) (*Role, error) {
	if name == "" {
		return nil, oops.Code("ROLE_INVALID_NAME").Errorf("role name cannot be empty")
	}
	now := time.Now().UTC()
	return &Role{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Permission is a named capability that roles grant, e.g. "user:read".
type Permission struct {
	ID          int64
	Name        string
	DisplayName string
	Description *string
	Module      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPermission creates a validated Permission. The ID is assigned on
// insert.
func NewPermission(name, displayName, module string, description *string) (*Permission, error) {
	if name == "" {
		return nil, oops.Code("PERMISSION_INVALID_NAME").Errorf("permission name cannot be empty")
	}
	now := time.Now().UTC()
	return &Permission{
		Name:        name,
		DisplayName: displayName,
		Description: description,
		Module:      module,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
