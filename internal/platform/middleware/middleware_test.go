// Copyright (c) 2026 Blood Bridge. All rights reserved.

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/middleware"
	"github.com/bloodbridge/portal/internal/session"
)

const liveID = "7d444840-9dc0-11d1-b245-5ffdce74fad2"

type stubLoader struct {
	sessions map[string]*session.Session
	err      error
}

func (l *stubLoader) Load(_ context.Context, id string) (*session.Session, error) {
	if l.err != nil {
		return nil, l.err
	}
	sess, ok := l.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (l *stubLoader) CookieOptions() session.CookieOptions { return session.CookieOptions{} }

func withCookie(value string) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if value != "" {
		request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: value})
	}
	return request
}

// # Session Loading

func TestLoadSession(t *testing.T) {
	live := &session.Session{ID: liveID, Identity: identity.Identity{Email: "donor@example.com"}}
	loader := &stubLoader{sessions: map[string]*session.Session{liveID: live}}

	tests := []struct {
		name        string
		cookie      string
		loader      *stubLoader
		wantStatus  int
		wantEmail   string
		wantCleared bool
	}{
		{name: "no_cookie", loader: loader, wantStatus: http.StatusOK},
		{name: "malformed_cookie", cookie: "../../etc", loader: loader, wantStatus: http.StatusOK},
		{name: "live_session", cookie: liveID, loader: loader, wantStatus: http.StatusOK, wantEmail: "donor@example.com"},
		{name: "stale_session", cookie: "0f8fad5b-d9cb-469f-a165-70867728950e", loader: loader, wantStatus: http.StatusOK, wantCleared: true},
		{name: "store_down", cookie: liveID, loader: &stubLoader{err: errors.New("dial tcp: refused")}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEmail string
			handler := middleware.LoadSession(tt.loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if sess, ok := session.FromContext(r.Context()); ok {
					gotEmail = sess.Email()
				}
				w.WriteHeader(http.StatusOK)
			}))

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, withCookie(tt.cookie))

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantEmail, gotEmail)

			cleared := false
			for _, cookie := range recorder.Result().Cookies() {
				if cookie.Name == constants.SessionCookieName && cookie.MaxAge < 0 {
					cleared = true
				}
			}
			assert.Equal(t, tt.wantCleared, cleared)
		})
	}
}

// # Tracing

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetRequestID(r.Context())
	}))

	generated := httptest.NewRecorder()
	handler.ServeHTTP(generated, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, generated.Header().Get(constants.HeaderXRequestID))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "upstream-123")
	reused := httptest.NewRecorder()
	handler.ServeHTTP(reused, request)
	assert.Equal(t, "upstream-123", seen)
}

// # Safety

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_ERROR")
}

func TestRateLimit_RejectsBurstOverflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimit(ctx)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var limited int
	for range constants.DefaultRateLimitBurst + 5 {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.RemoteAddr = "203.0.113.7:5000"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		if recorder.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Positive(t, limited)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "198.51.100.1:5000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, other)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

// # CORS

type corsConfig struct {
	dev    bool
	suffix string
}

func (c corsConfig) IsDevelopment() bool  { return c.dev }
func (c corsConfig) OriginSuffix() string { return c.suffix }

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		cfg     corsConfig
		origin  string
		allowed bool
	}{
		{"dev_any_origin", corsConfig{dev: true}, "http://localhost:5173", true},
		{"prod_subdomain", corsConfig{suffix: "bloodbridge.app"}, "https://www.bloodbridge.app", true},
		{"prod_apex", corsConfig{suffix: "bloodbridge.app"}, "https://bloodbridge.app", true},
		{"prod_lookalike", corsConfig{suffix: "bloodbridge.app"}, "https://evilbloodbridge.app", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CORS(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.Header.Set("Origin", tt.origin)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			if tt.allowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestRealIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXForwardedFor, "198.51.100.4, 10.0.0.1")
	assert.Equal(t, "198.51.100.4", middleware.RealIP(request))

	request.Header.Set(constants.HeaderXRealIP, "192.0.2.9")
	assert.Equal(t, "192.0.2.9", middleware.RealIP(request))
}
