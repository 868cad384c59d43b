// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package identity

import "context"

// RequestMeta carries per-request client details recorded alongside
// issued refresh tokens.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta returns a context carrying the client metadata.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts client metadata from the context,
// returning the zero value if none was attached.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
