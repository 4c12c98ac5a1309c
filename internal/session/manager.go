// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/pkg/uuid"
)

// SignOutHook runs after a session is destroyed. Role cache invalidation is
// registered here.
type SignOutHook func(ctx context.Context, who identity.Identity) error

// Options configures a [Manager].
type Options struct {
	// TTL is the absolute lifetime of a session.
	TTL time.Duration

	Cookie CookieOptions

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Manager signs browsers in and out and hands out fresh ID tokens.
type Manager struct {
	provider identity.Provider
	store    Store
	ttl      time.Duration
	cookie   CookieOptions
	now      func() time.Time
	hooks    []SignOutHook
}

// NewManager wires a provider to a store.
func NewManager(provider identity.Provider, store Store, options Options) *Manager {
	manager := &Manager{
		provider: provider,
		store:    store,
		ttl:      options.TTL,
		cookie:   options.Cookie,
		now:      options.Now,
	}
	if manager.ttl <= 0 {
		manager.ttl = 24 * time.Hour
	}
	if manager.now == nil {
		manager.now = time.Now
	}
	return manager
}

// OnSignOut registers a hook. Register hooks during wiring, before serving.
func (m *Manager) OnSignOut(hook SignOutHook) {
	m.hooks = append(m.hooks, hook)
}

// CookieOptions returns the options the session cookie is issued with.
func (m *Manager) CookieOptions() CookieOptions {
	return m.cookie
}

// # Sign-in

// SignIn exchanges credentials at the provider, stores a new session and
// issues its cookie. Provider failures are returned as [*AuthError].
func (m *Manager) SignIn(ctx context.Context, writer http.ResponseWriter, email, password string) (*Session, error) {
	grant, err := m.provider.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	now := m.now()
	sess := &Session{
		ID:           uuid.NewSessionID(),
		Identity:     grant.Identity,
		IDToken:      grant.IDToken,
		RefreshToken: grant.RefreshToken,
		TokenExpiry:  grant.Expiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}
	if sess.Identity.Email == "" {
		sess.Identity.Email = strings.TrimSpace(email)
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	SetCookie(writer, sess.ID, sess.ExpiresAt, m.cookie)

	ctxutil.GetLogger(ctx).InfoContext(ctx, "session_signed_in",
		slog.String("email", sess.Identity.Email),
		slog.Time("expires_at", sess.ExpiresAt),
	)
	return sess, nil
}

// # Loading

// Load returns the live session for id. Lapsed sessions are deleted and
// reported as [ErrNotFound].
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(m.now()) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// # Sign-out

// SignOut destroys the session and runs the sign-out hooks. A nil session is
// a no-op. The provider-side revocation is best-effort.
func (m *Manager) SignOut(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	logger := ctxutil.GetLogger(ctx)

	err := m.store.Delete(ctx, sess.ID)

	sess.mu.Lock()
	refreshToken := sess.RefreshToken
	sess.mu.Unlock()

	if revokeErr := m.provider.Revoke(ctx, refreshToken); revokeErr != nil {
		logger.WarnContext(ctx, "session_revoke_failed", slog.Any("error", revokeErr))
	}

	for _, hook := range m.hooks {
		if hookErr := hook(ctx, sess.Identity); hookErr != nil {
			err = errors.Join(err, hookErr)
		}
	}

	logger.InfoContext(ctx, "session_signed_out", slog.String("email", sess.Identity.Email))
	return err
}

// # Tokens

var errNoSession = errors.New("no signed-in session")

// Token returns an ID token for sess.
//
// With forceRefresh the provider is always asked for a new token; otherwise
// the stored one is reused until shortly before it expires. A refreshed grant
// is persisted so later requests start from it. Failures are [*AuthError].
func (m *Manager) Token(ctx context.Context, sess *Session, forceRefresh bool) (string, error) {
	if sess == nil {
		return "", &AuthError{Err: errNoSession}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !forceRefresh && sess.IDToken != "" && m.now().Add(constants.TokenRefreshSkew).Before(sess.TokenExpiry) {
		return sess.IDToken, nil
	}

	grant, err := m.provider.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	sess.IDToken = grant.IDToken
	if grant.RefreshToken != "" {
		sess.RefreshToken = grant.RefreshToken
	}
	sess.TokenExpiry = grant.Expiry

	// The refreshed token is valid even if persisting it fails.
	if err := m.store.Update(ctx, sess); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_token_persist_failed", slog.Any("error", err))
	}

	return sess.IDToken, nil
}
