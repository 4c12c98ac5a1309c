// Copyright (c) 2026 Blood Bridge. All rights reserved.

package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/identity"
)

func idToken(t *testing.T, email, name string, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"name":  name,
		"exp":   expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func newProvider(t *testing.T, server *httptest.Server) *identity.RESTProvider {
	t.Helper()
	provider, err := identity.NewRESTProvider(identity.RESTOptions{
		SignInURL:  server.URL + "/signin",
		TokenURL:   server.URL + "/token",
		APIKey:     "k-123",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return provider
}

func TestNewRESTProvider_RequiresEndpoints(t *testing.T) {
	_, err := identity.NewRESTProvider(identity.RESTOptions{SignInURL: "http://x"})
	assert.Error(t, err)
}

/*
TestRESTProvider_SignIn verifies the credential exchange and claim extraction.
*/
func TestRESTProvider_SignIn(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := idToken(t, "donor@example.com", "Dina Donor", expiry)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signin", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "donor@example.com", body["email"])
		assert.Equal(t, true, body["returnSecureToken"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken":      token,
			"refreshToken": "rt-1",
			"expiresIn":    "3600",
			"email":        "donor@example.com",
		})
	}))
	defer server.Close()

	grant, err := newProvider(t, server).SignIn(context.Background(), "donor@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "donor@example.com", grant.Identity.Email)
	assert.Equal(t, "Dina Donor", grant.Identity.DisplayName)
	assert.Equal(t, token, grant.IDToken)
	assert.Equal(t, "rt-1", grant.RefreshToken)
	assert.True(t, grant.Expiry.Equal(expiry))
}

func TestRESTProvider_SignInFailures(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    error
	}{
		{"wrong_password", "INVALID_PASSWORD", identity.ErrInvalidCredentials},
		{"unknown_email", "EMAIL_NOT_FOUND", identity.ErrInvalidCredentials},
		{"combined_code", "INVALID_LOGIN_CREDENTIALS", identity.ErrInvalidCredentials},
		{"disabled", "USER_DISABLED", identity.ErrUserDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"` + tt.message + `"}}`))
			}))
			defer server.Close()

			_, err := newProvider(t, server).SignIn(context.Background(), "a@b.c", "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var identityErr *identity.Error
			require.ErrorAs(t, err, &identityErr)
			assert.Equal(t, "sign_in", identityErr.Op)
		})
	}
}

/*
TestRESTProvider_Refresh verifies the refresh-token grant goes over the wire
every time and the rotated refresh token is returned.
*/
func TestRESTProvider_Refresh(t *testing.T) {
	token := idToken(t, "admin@example.com", "", time.Now().Add(time.Hour))
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-old", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  token,
			"id_token":      token,
			"refresh_token": "rt-new",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	provider := newProvider(t, server)

	grant, err := provider.Refresh(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", grant.Identity.Email)
	assert.Equal(t, token, grant.IDToken)
	assert.Equal(t, "rt-new", grant.RefreshToken)

	_, err = provider.Refresh(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRESTProvider_RefreshRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"TOKEN_EXPIRED"}`))
	}))
	defer server.Close()

	_, err := newProvider(t, server).Refresh(context.Background(), "rt-old")
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrRefreshRejected)
}

func TestRESTProvider_RefreshWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := newProvider(t, server).Refresh(context.Background(), "")
	assert.ErrorIs(t, err, identity.ErrRefreshRejected)
}

func TestRESTProvider_RevokeWithoutEndpointIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("revoke must not call the provider when no endpoint is configured")
	}))
	defer server.Close()

	assert.NoError(t, newProvider(t, server).Revoke(context.Background(), "rt"))
}
