// Copyright (c) 2026 Blood Bridge. All rights reserved.

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/navigate"
	"github.com/bloodbridge/portal/internal/platform/apperr"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/validate"
	"github.com/bloodbridge/portal/internal/session"
)

type loginForm struct {
	Email string
	From  string
}

func (handler *Handler) loginForm(writer http.ResponseWriter, request *http.Request) {
	from := navigate.SafeReturn(request.URL.Query().Get(constants.QueryFrom))

	if _, ok := session.FromContext(request.Context()); ok {
		seeOther(writer, request, from)
		return
	}

	writer.Header().Set(constants.HeaderCacheControl, "no-store")
	handler.renderer.Render(writer, request, http.StatusOK, "login", View{
		Title: "Sign in",
		Data:  loginForm{From: from},
	})
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	if err := request.ParseForm(); err != nil {
		handler.renderer.Error(writer, request, apperr.ValidationError("Malformed form submission"))
		return
	}

	form := loginForm{
		Email: strings.TrimSpace(request.PostForm.Get("email")),
		From:  navigate.SafeReturn(request.PostForm.Get(constants.QueryFrom)),
	}
	password := request.PostForm.Get("password")

	invalid := (&validate.Validator{}).
		Required("email", form.Email).
		Email("email", form.Email).
		Required("password", password).
		Err()
	if invalid != nil {
		handler.renderer.Render(writer, request, http.StatusBadRequest, "login", View{
			Title: "Sign in", Error: apperr.As(invalid), Data: form,
		})
		return
	}

	sess, err := handler.sessions.SignIn(ctx, writer, form.Email, password)
	if err != nil {
		handler.renderer.Render(writer, request, signInStatus(err), "login", View{
			Title: "Sign in", Error: signInError(err), Data: form,
		})
		return
	}

	// The new cookie replaces the old one in the browser, but the old record
	// and its refresh token would stay live until they expire.
	if previous, ok := session.FromContext(ctx); ok && previous.ID != sess.ID {
		if err := handler.sessions.SignOut(ctx, previous); err != nil {
			logger.WarnContext(ctx, "previous_session_sign_out_failed", slog.Any("error", err))
		}
	}

	// Bookkeeping only; a failure must not undo a successful sign-in.
	if err := handler.public().RecordSignIn(ctx, sess.Email(), time.Now()); err != nil {
		logger.WarnContext(ctx, "record_sign_in_failed", slog.Any("error", err))
	}

	seeOther(writer, request, form.From)
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	if sess, ok := session.FromContext(ctx); ok {
		if err := handler.sessions.SignOut(ctx, sess); err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "sign_out_incomplete", slog.Any("error", err))
		}
	}
	session.ClearCookie(writer, handler.sessions.CookieOptions())

	seeOther(writer, request, constants.PathHome)
}

func (handler *Handler) forbidden(writer http.ResponseWriter, request *http.Request) {
	handler.renderer.Render(writer, request, http.StatusForbidden, "forbidden", View{Title: "Access denied"})
}

// # Sign-in Failures

func signInStatus(err error) int {
	if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrUserDisabled) {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}

// signInError shows the provider's own message when it gave one.
func signInError(err error) *apperr.AppError {
	var providerErr *identity.Error
	if errors.As(err, &providerErr) && providerErr.Message != "" {
		return apperr.Unauthorized(providerErr.Message)
	}
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return apperr.Unauthorized("Invalid email or password")
	case errors.Is(err, identity.ErrUserDisabled):
		return apperr.Unauthorized("This account has been disabled")
	}
	return apperr.Upstream(err)
}
