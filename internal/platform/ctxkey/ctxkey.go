// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// It is used to store and retrieve per-request values (session, role, request ID, logger).
// Using a private, unexported type for keys prevents collisions with third-party
// packages that might also use context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeySession is the context key for the signed-in session loaded from the cookie.
	KeySession key = "session"

	// KeyRole is the context key for the role resolved by the access gate.
	KeyRole key = "role"

	// KeyNavigator is the context key for the request's redirect writer.
	KeyNavigator key = "navigator"
)
