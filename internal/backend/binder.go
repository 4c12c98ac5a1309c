// Copyright (c) 2026 Blood Bridge. All rights reserved.

package backend

import (
	"context"

	"github.com/bloodbridge/portal/internal/navigate"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/internal/session"
)

// SignOuter ends a session. [*session.Manager] implements it.
type SignOuter interface {
	SignOut(ctx context.Context, sess *session.Session) error
}

// Binder hands out secure clients bound to the current browser request.
type Binder struct {
	public      *Client
	interceptor *session.Interceptor
	sessions    SignOuter
}

// NewBinder builds secure clients on top of public.
func NewBinder(public *Client, interceptor *session.Interceptor, sessions SignOuter) *Binder {
	return &Binder{public: public, interceptor: interceptor, sessions: sessions}
}

// Public returns the unauthenticated client.
func (b *Binder) Public() *Client {
	return b.public
}

// Bind returns a client whose calls go through the interceptor for the
// session and navigator carried by ctx. The release func detaches the
// transport and must be called when the caller is done with the client.
func (b *Binder) Bind(ctx context.Context) (*Client, func()) {
	binding := session.Binding{}

	if sess, ok := session.FromContext(ctx); ok {
		binding.Session = sess
		binding.SignOut = func(ctx context.Context) error {
			return b.sessions.SignOut(ctx, sess)
		}
	}
	// Only set when present: a typed nil would defeat the interceptor's nil check.
	if navigator, ok := navigate.FromContext(ctx); ok {
		binding.Navigator = navigator
	}

	transport := b.interceptor.Attach(binding)
	return b.public.WithTransport(transport), transport.Detach
}

// # Role Lookup

// RoleFetcher reads roles through a secure client. It implements [role.Fetcher].
type RoleFetcher struct {
	binder *Binder
}

// NewRoleFetcher adapts binder for the role resolver.
func NewRoleFetcher(binder *Binder) *RoleFetcher {
	return &RoleFetcher{binder: binder}
}

// UserRole fetches the role for email.
func (f *RoleFetcher) UserRole(ctx context.Context, email string) (role.Role, error) {
	client, release := f.binder.Bind(ctx)
	defer release()
	return client.UserRole(ctx, email)
}
