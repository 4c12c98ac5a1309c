// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package navigate provides the redirect primitive shared by the access gate and
the session interceptor.

A [Navigator] is bound to exactly one in-flight browser request. The first
redirect issued through it wins; later redirects are recorded but not written,
so a 401 handled by the interceptor and a Forbidden decision reached by the gate
for the same response never produce two Location headers.
*/
package navigate

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/ctxkey"
)

// Redirect describes one navigation request.
type Redirect struct {
	// Path is the local destination (e.g. "/login").
	Path string

	// Replace asks that the current entry not remain in browser history.
	Replace bool

	// From is the attempted location, carried so sign-in can return to it.
	From string
}

// URL renders the redirect target with the origin location encoded as a query parameter.
func (r Redirect) URL() string {
	if r.From == "" {
		return r.Path
	}
	query := url.Values{}
	query.Set(constants.QueryFrom, r.From)

	separator := "?"
	if strings.Contains(r.Path, "?") {
		separator = "&"
	}
	return r.Path + separator + query.Encode()
}

// Navigator issues redirects and reports the current location.
type Navigator interface {
	Navigate(redirect Redirect)
	Location() string
}

// # HTTP Navigator

// HTTPNavigator writes redirects to an [http.ResponseWriter].
//
// It is safe for concurrent use: the gate's background role lookup and the
// handler goroutine may both hold it.
type HTTPNavigator struct {
	writer  http.ResponseWriter
	request *http.Request

	mu       sync.Mutex
	written  *Redirect
	detached bool
	ignored  []Redirect
}

// NewHTTP binds a navigator to one request/response pair.
func NewHTTP(writer http.ResponseWriter, request *http.Request) *HTTPNavigator {
	return &HTTPNavigator{writer: writer, request: request}
}

// Navigate writes the redirect unless one was already written or the navigator is detached.
//
// Replace redirects use 303 See Other; others use 302 Found. Neither leaves the
// redirecting URL in browser history, so Replace is always honoured.
func (n *HTTPNavigator) Navigate(redirect Redirect) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.written != nil || n.detached {
		n.ignored = append(n.ignored, redirect)
		return
	}

	status := http.StatusFound
	if redirect.Replace {
		status = http.StatusSeeOther
	}

	n.writer.Header().Set(constants.HeaderCacheControl, "no-store")
	http.Redirect(n.writer, n.request, redirect.URL(), status)
	n.written = &redirect
}

// Location returns the request path including its query string.
//
// A form post cannot be replayed by a GET after sign-in, so for any method but
// GET or HEAD it is the same-host page that submitted the form, or "" when the
// Referer is missing or foreign.
func (n *HTTPNavigator) Location() string {
	if n.request.Method == http.MethodGet || n.request.Method == http.MethodHead {
		return n.request.URL.RequestURI()
	}

	referer, err := url.Parse(n.request.Header.Get(constants.HeaderReferer))
	if err != nil || referer.Path == "" || (referer.Host != "" && referer.Host != n.request.Host) {
		return ""
	}
	if location := referer.RequestURI(); SafeReturn(location) == location {
		return location
	}
	return ""
}

// Redirected reports whether a redirect has been written.
func (n *HTTPNavigator) Redirected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.written != nil
}

// Written returns the redirect that was written, if any.
func (n *HTTPNavigator) Written() (Redirect, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.written == nil {
		return Redirect{}, false
	}
	return *n.written, true
}

// Detach stops all further writes and reports whether a redirect already went out.
//
// Callers that want to write their own response after handing the navigator to
// another goroutine must Detach first and only write when it returns false.
func (n *HTTPNavigator) Detach() (redirected bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.detached = true
	return n.written != nil
}

// # Context

// WithNavigator attaches the request's navigator to ctx.
func WithNavigator(ctx context.Context, navigator *HTTPNavigator) context.Context {
	return context.WithValue(ctx, ctxkey.KeyNavigator, navigator)
}

// FromContext returns the navigator bound to the request, if any.
func FromContext(ctx context.Context) (*HTTPNavigator, bool) {
	navigator, ok := ctx.Value(ctxkey.KeyNavigator).(*HTTPNavigator)
	return navigator, ok && navigator != nil
}

// ForRequest returns the navigator already bound to the request, or binds a
// new one. The returned request carries it in its context.
func ForRequest(writer http.ResponseWriter, request *http.Request) (*HTTPNavigator, *http.Request) {
	if navigator, ok := FromContext(request.Context()); ok {
		return navigator, request
	}
	navigator := NewHTTP(writer, request)
	return navigator, request.WithContext(WithNavigator(request.Context(), navigator))
}

// # Helpers

// SafeReturn validates a "from" value so sign-in never redirects off-site.
func SafeReturn(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return constants.PathHome
	}
	parsed, err := url.Parse(from)
	if err != nil || parsed.IsAbs() || parsed.Host != "" {
		return constants.PathHome
	}
	if parsed.Path == constants.PathLogin {
		return constants.PathHome
	}
	return from
}
