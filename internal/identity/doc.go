// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package identity provides user accounts, credential verification,
// token issuance, and role-based authorization for Warden.
//
// The package defines the domain entities (User, Role, Permission,
// RefreshToken), the repository and unit-of-work contracts that
// persistence backends implement, and the services that orchestrate
// them. Postgres implementations live in the postgres subpackage;
// in-memory fakes for tests live in identitytest.
package identity
