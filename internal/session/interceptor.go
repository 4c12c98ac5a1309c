// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bloodbridge/portal/internal/navigate"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/metrics"
)

// TokenSource yields ID tokens for a session. [*Manager] implements it.
type TokenSource interface {
	Token(ctx context.Context, sess *Session, forceRefresh bool) (string, error)
}

// Binding carries everything an interceptor needs from one browser request.
type Binding struct {
	// Session is nil for anonymous requests; no token is attached then.
	Session *Session

	// SignOut ends the session. It runs at most once per binding.
	SignOut func(ctx context.Context) error

	// Navigator receives the /login and /forbidden redirects.
	Navigator navigate.Navigator
}

// Interceptor produces per-request transports for calls to the REST API.
type Interceptor struct {
	tokens  TokenSource
	base    http.RoundTripper
	metrics *metrics.Metrics
}

// NewInterceptor wraps base (http.DefaultTransport when nil). m may be nil.
func NewInterceptor(tokens TokenSource, base http.RoundTripper, m *metrics.Metrics) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Interceptor{tokens: tokens, base: base, metrics: m}
}

// Attach binds the interceptor to one request. Call Detach on the result when
// the owning handler returns.
func (i *Interceptor) Attach(binding Binding) *Transport {
	return &Transport{interceptor: i, binding: binding}
}

// # Bound Transport

// Transport is an [http.RoundTripper] bound to a single browser request.
type Transport struct {
	interceptor *Interceptor
	binding     Binding

	detached atomic.Bool
	signOut  sync.Once
}

// Detach tears down the binding. Later requests fail with [ErrDetached].
func (t *Transport) Detach() {
	t.detached.Store(true)
}

// Client returns an [http.Client] using this transport.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// RoundTrip implements [http.RoundTripper].
//
//   - A token is force-refreshed before every call; if that fails the session
//     ends, the browser goes to /login and the request is never sent.
//   - 401 ends the session and redirects to /login.
//   - 403 redirects to /forbidden, replacing history, and keeps the session.
//   - Everything else, including transport errors, reaches the caller as is.
func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	if t.detached.Load() {
		closeBody(request.Body)
		return nil, ErrDetached
	}

	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)
	outbound := request

	if t.binding.Session != nil {
		token, err := t.interceptor.tokens.Token(ctx, t.binding.Session, true)
		if err != nil {
			closeBody(request.Body)
			t.interceptor.metrics.InterceptorOutcome("token_failed")
			logger.WarnContext(ctx, "interceptor_token_failed", slog.Any("error", err))
			t.endSession(ctx)
			return nil, asAuthError(err)
		}

		outbound = request.Clone(ctx)
		outbound.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	response, err := t.interceptor.base.RoundTrip(outbound)
	if err != nil {
		t.interceptor.metrics.InterceptorOutcome("transport_error")
		return nil, err
	}

	switch response.StatusCode {
	case http.StatusUnauthorized:
		drain(response)
		t.interceptor.metrics.InterceptorOutcome("unauthorized")
		logger.InfoContext(ctx, "interceptor_unauthorized", slog.String("url", request.URL.Redacted()))
		t.endSession(ctx)
		return nil, &SessionExpiredError{Method: request.Method, URL: request.URL.Redacted()}

	case http.StatusForbidden:
		drain(response)
		t.interceptor.metrics.InterceptorOutcome("forbidden")
		logger.InfoContext(ctx, "interceptor_forbidden", slog.String("url", request.URL.Redacted()))
		t.navigate(navigate.Redirect{Path: constants.PathForbidden, Replace: true})
		return nil, &ForbiddenError{Method: request.Method, URL: request.URL.Redacted()}
	}

	t.interceptor.metrics.InterceptorOutcome("passed")
	return response, nil
}

// endSession signs out once per binding and sends the browser to sign-in.
func (t *Transport) endSession(ctx context.Context) {
	t.signOut.Do(func() {
		if t.binding.SignOut != nil {
			if err := t.binding.SignOut(ctx); err != nil {
				ctxutil.GetLogger(ctx).WarnContext(ctx, "interceptor_sign_out_failed", slog.Any("error", err))
			}
		}
	})

	redirect := navigate.Redirect{Path: constants.PathLogin, Replace: true}
	if t.binding.Navigator != nil {
		redirect.From = t.binding.Navigator.Location()
	}
	t.navigate(redirect)
}

func (t *Transport) navigate(redirect navigate.Redirect) {
	if t.binding.Navigator != nil {
		t.binding.Navigator.Navigate(redirect)
	}
}

func asAuthError(err error) error {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return &AuthError{Err: err}
}

func drain(response *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4<<10))
	_ = response.Body.Close()
}

func closeBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
