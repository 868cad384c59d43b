// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package postgres implements the identity repositories and unit of
// work on PostgreSQL via pgx.
package postgres
