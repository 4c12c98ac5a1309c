// Copyright (c) 2026 Blood Bridge. All rights reserved.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bloodbridge/portal/internal/platform/apperr"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/respond"
	"github.com/bloodbridge/portal/internal/session"
)

// SessionLoader resolves a session cookie. [*session.Manager] implements it.
type SessionLoader interface {
	Load(ctx context.Context, id string) (*session.Session, error)
	CookieOptions() session.CookieOptions
}

// LoadSession resolves the session cookie and attaches the live session to
// the request context.
//
// # Flow
//  1. No cookie (or a malformed one): the request proceeds as anonymous.
//  2. Unknown or lapsed session: the stale cookie is cleared and the request
//     proceeds as anonymous, so guarded routes send it to sign-in.
//  3. Store failure: 503, since the portal cannot tell who is asking.
//  4. Otherwise the session and a user-scoped logger are injected.
func LoadSession(loader SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			id, ok := session.ReadCookie(request)
			if !ok {
				next.ServeHTTP(writer, request)
				return
			}

			sess, err := loader.Load(ctx, id)
			switch {
			case errors.Is(err, session.ErrNotFound):
				session.ClearCookie(writer, loader.CookieOptions())
				next.ServeHTTP(writer, request)
				return

			case err != nil:
				ctxutil.GetLogger(ctx).ErrorContext(ctx, "session_load_failed", slog.Any("error", err))
				respond.Error(writer, request, apperr.ServiceUnavailable("Sessions are temporarily unavailable"))
				return
			}

			annotateUser(ctx, sess.Email())
			ctx = ctxutil.WithLogAttrs(session.WithSession(ctx, sess), slog.String("user", sess.Email()))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
