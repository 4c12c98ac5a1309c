// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package session owns the signed-in state of a browser and every outbound call
made on its behalf.

# Components

  - [Session]: the server-side record behind the opaque cookie.
  - [Store]: persistence (Redis, PostgreSQL or in-process memory).
  - [Manager]: sign-in, sign-out and token refresh. It is the one explicit
    session context object; handlers receive it by injection.
  - [Interceptor]: binds a request's session, sign-out and navigator into an
    [http.RoundTripper] that attaches fresh tokens and reacts to 401/403.
*/
package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/platform/ctxkey"
)

// Session is one signed-in browser.
//
// Identity is immutable after sign-in. Token fields change on refresh and are
// guarded by the session's lock; use [Manager.Token] rather than reading them
// from concurrent goroutines.
type Session struct {
	ID           string            `json:"-"`
	Identity     identity.Identity `json:"identity"`
	IDToken      string            `json:"id_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenExpiry  time.Time         `json:"token_expiry"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`

	mu sync.Mutex
}

// StorageKey is the key a session id is stored under: the unpadded base64url
// SHA-256 of the id. The raw id only ever lives in the browser cookie, so a
// leaked store dump cannot be replayed as a cookie.
func StorageKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Email returns the identity's email, or "" for a nil session.
func (s *Session) Email() string {
	if s == nil {
		return ""
	}
	return s.Identity.Email
}

// Expired reports whether the session itself (not its token) has lapsed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Store persists sessions by id.
type Store interface {
	Create(ctx context.Context, sess *Session) error

	// Get returns [ErrNotFound] for unknown or expired ids.
	Get(ctx context.Context, id string) (*Session, error)

	// Update persists refreshed token fields.
	Update(ctx context.Context, sess *Session) error

	// Delete is idempotent.
	Delete(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// ErrNotFound is returned by [Store.Get] for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// ErrDuplicate is returned by [Store.Create] when the id is already taken.
var ErrDuplicate = errors.New("session: id already exists")

// # Context

// WithSession attaches the loaded session to ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, sess)
}

// FromContext returns the session loaded for this request, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxkey.KeySession).(*Session)
	return sess, ok && sess != nil
}
