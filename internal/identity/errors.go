// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import "errors"

// Error kinds shared across the identity package. Callers classify
// failures with errors.Is against these sentinels; oops codes carry the
// operation-specific message key alongside.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateEntry is returned when a write violates a uniqueness
	// constraint, such as registering an email that is already taken.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrTokenInvalid is returned when a presented token does not match
	// any stored fingerprint or fails structural validation.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned when a token matches its stored
	// fingerprint but its lifetime has elapsed.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnauthorized is returned when credentials or tokens fail
	// verification. Every access-token failure satisfies this kind.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an authenticated caller lacks the
	// required permission or account state for an operation.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyVerified is returned when a verification is requested
	// for an account that has already been activated.
	ErrAlreadyVerified = errors.New("account already verified")

	// ErrSystemConfig is returned when the deployment is misconfigured,
	// such as the default registration role missing from the database.
	ErrSystemConfig = errors.New("system configuration error")
)
