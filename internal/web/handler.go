// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package web serves the portal's HTML pages.

Handlers never decide access: the access gate wraps each guarded route before
it reaches them. Calls to the REST API on a signed-in user's behalf go through
a client bound to the request ([backend.Binder]), so a 401 or 403 ends in the
interceptor's redirect and the handler only has to stop rendering.
*/
package web

import (
	"context"
	"net/http"

	"github.com/bloodbridge/portal/internal/backend"
	"github.com/bloodbridge/portal/internal/navigate"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/internal/session"
)

// Sessions signs users in and out. [*session.Manager] implements it.
type Sessions interface {
	SignIn(ctx context.Context, writer http.ResponseWriter, email, password string) (*session.Session, error)
	SignOut(ctx context.Context, sess *session.Session) error
	CookieOptions() session.CookieOptions
}

// Roles reads and invalidates cached roles. [*role.Resolver] implements it.
type Roles interface {
	Resolve(ctx context.Context, email string) (role.Role, error)
	Invalidate(ctx context.Context, email string) error
}

// Handler serves every page.
type Handler struct {
	renderer *Renderer
	sessions Sessions
	roles    Roles
	binder   *backend.Binder
}

// NewHandler wires the page handlers.
func NewHandler(renderer *Renderer, sessions Sessions, roles Roles, binder *backend.Binder) *Handler {
	return &Handler{renderer: renderer, sessions: sessions, roles: roles, binder: binder}
}

// Route is one page endpoint. The router wraps it with the access policy
// entry for Pattern, if there is one.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Routes lists every page endpoint.
func (handler *Handler) Routes() []Route {
	return []Route{
		// Public
		{http.MethodGet, "/", handler.home},
		{http.MethodGet, "/blog", handler.blog},
		{http.MethodGet, "/donation-requests", handler.publicDonationRequests},
		{http.MethodGet, "/donor-search", handler.donorSearch},
		{http.MethodGet, "/login", handler.loginForm},
		{http.MethodPost, "/login", handler.login},
		{http.MethodPost, "/logout", handler.logout},
		{http.MethodGet, "/forbidden", handler.forbidden},

		// Any signed-in identity
		{http.MethodGet, "/dashboard", handler.dashboard},
		{http.MethodGet, "/dashboard/profile", handler.profile},
		{http.MethodGet, "/funding", handler.funding},
		{http.MethodGet, "/donation-requests/{id}", handler.donationRequest},

		// Role-gated
		{http.MethodGet, "/dashboard/my-donation-requests", handler.myDonationRequests},
		{http.MethodGet, "/dashboard/all-users", handler.allUsers},
		{http.MethodPost, "/dashboard/all-users/{id}/role", handler.updateUserRole},
		{http.MethodPost, "/dashboard/all-users/{id}/status", handler.updateUserStatus},
		{http.MethodGet, "/dashboard/all-blood-donation-request", handler.allDonationRequests},
		{http.MethodGet, "/dashboard/content-management", handler.contentManagement},
		{http.MethodGet, "/dashboard/donation-requests/view/{id}", handler.donationRequest},
	}
}

// Loading writes the body of the page shown while the access gate waits for
// a role. The gate has already set status and headers.
func (handler *Handler) Loading(writer http.ResponseWriter, request *http.Request) {
	handler.renderer.Body(writer, request, "loading", View{Title: "Loading"})
}

// NotFound renders the 404 page.
func (handler *Handler) NotFound(writer http.ResponseWriter, request *http.Request) {
	handler.renderer.Render(writer, request, http.StatusNotFound, "not_found", View{Title: "Not found"})
}

// secure returns a client bound to this request's session and navigator.
// Call release when the handler is done with it.
func (handler *Handler) secure(writer http.ResponseWriter, request *http.Request) (*backend.Client, *http.Request, func()) {
	_, request = navigate.ForRequest(writer, request)
	client, release := handler.binder.Bind(request.Context())
	return client, request, release
}

// public returns the unauthenticated client.
func (handler *Handler) public() *backend.Client {
	return handler.binder.Public()
}
