// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Package ctxutil reads and writes the request-scoped values the middleware
// chain stores in [context.Context]: the correlation id and the logger.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/bloodbridge/portal/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID attaches the X-Request-ID correlation value.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID returns the correlation value, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger attaches the per-request logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// WithLogAttrs derives a logger carrying attrs from the one in ctx, so every
// later log line of the request includes them.
func WithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return WithLogger(ctx, GetLogger(ctx).With(args...))
}

// GetLogger returns the per-request logger, falling back to [slog.Default]
// for background work that never passed through the middleware chain.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
