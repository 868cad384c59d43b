// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/wardenhq/warden/pkg/errutil"
)

var errSentinel = errors.New("sentinel")

func TestAssertErrorCode(t *testing.T) {
	err := oops.Code("EMAIL_ALREADY_EXISTS").Errorf("duplicate")
	errutil.AssertErrorCode(t, err, "EMAIL_ALREADY_EXISTS")
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.With("permission", "users:delete").Errorf("denied")
	errutil.AssertErrorContext(t, err, "permission", "users:delete")
}

func TestAssertErrorKind(t *testing.T) {
	err := oops.Code("PERMISSION_DENIED").Wrap(errSentinel)
	errutil.AssertErrorKind(t, err, errSentinel, "PERMISSION_DENIED")
}

func TestAssertErrorKind_Wrapped(t *testing.T) {
	inner := oops.Code("TOKEN_EXPIRED").Wrap(errSentinel)
	err := oops.With("stage", "refresh").Wrap(inner)
	errutil.AssertErrorKind(t, err, errSentinel, "TOKEN_EXPIRED")
}
