// Copyright (c) 2026 Blood Bridge. All rights reserved.

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/bloodbridge/portal/internal/platform/ctxutil"
)

// RESTOptions configures a [RESTProvider].
type RESTOptions struct {
	// SignInURL accepts {"email","password","returnSecureToken"} and returns tokens.
	SignInURL string

	// TokenURL is an OAuth2 token endpoint accepting the refresh_token grant.
	TokenURL string

	// RevokeURL is an optional RFC 7009 revocation endpoint.
	RevokeURL string

	// APIKey is appended as the "key" query parameter to every endpoint.
	APIKey string

	// HTTPClient overrides the client used for provider calls.
	HTTPClient *http.Client
}

// RESTProvider talks to an email/password identity service over JSON and
// refreshes tokens with the OAuth2 refresh-token grant.
type RESTProvider struct {
	signInURL  string
	revokeURL  string
	httpClient *http.Client
	oauth      oauth2.Config
}

// NewRESTProvider validates options and builds the provider.
func NewRESTProvider(options RESTOptions) (*RESTProvider, error) {
	if options.SignInURL == "" || options.TokenURL == "" || options.APIKey == "" {
		return nil, errors.New("identity: sign-in URL, token URL and API key are required")
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	provider := &RESTProvider{
		signInURL:  withKey(options.SignInURL, options.APIKey),
		httpClient: httpClient,
		oauth: oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  withKey(options.TokenURL, options.APIKey),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	if options.RevokeURL != "" {
		provider.revokeURL = withKey(options.RevokeURL, options.APIKey)
	}

	return provider, nil
}

// # Sign-in

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn implements [Provider].
func (p *RESTProvider) SignIn(ctx context.Context, email, password string) (*Grant, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, &Error{Op: "sign_in", Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.signInURL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "sign_in", Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := p.httpClient.Do(request)
	if err != nil {
		return nil, &Error{Op: "sign_in", Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		var failure providerError
		_ = json.NewDecoder(response.Body).Decode(&failure)
		return nil, classifySignInFailure(response.StatusCode, failure.Error.Message)
	}

	var payload signInResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, &Error{Op: "sign_in", Err: fmt.Errorf("decode response: %w", err)}
	}

	grant, err := grantFromIDToken(payload.IDToken, payload.RefreshToken)
	if err != nil {
		return nil, &Error{Op: "sign_in", Err: err}
	}

	// The sign-in payload is authoritative for the profile when the token omits it.
	if grant.Identity.Email == "" {
		grant.Identity.Email = payload.Email
	}
	if grant.Identity.DisplayName == "" {
		grant.Identity.DisplayName = payload.DisplayName
	}
	if grant.Expiry.IsZero() {
		if seconds, convErr := strconv.Atoi(payload.ExpiresIn); convErr == nil {
			grant.Expiry = time.Now().Add(time.Duration(seconds) * time.Second)
		}
	}

	ctxutil.GetLogger(ctx).DebugContext(ctx, "identity_sign_in_succeeded", slog.String("email", grant.Identity.Email))
	return grant, nil
}

func classifySignInFailure(status int, message string) error {
	switch {
	case strings.HasPrefix(message, "USER_DISABLED"):
		return &Error{Op: "sign_in", Message: "this account has been disabled", Err: ErrUserDisabled}
	case strings.HasPrefix(message, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(message, "INVALID_PASSWORD"),
		strings.HasPrefix(message, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(message, "INVALID_EMAIL"):
		return &Error{Op: "sign_in", Message: "invalid email or password", Err: ErrInvalidCredentials}
	case strings.HasPrefix(message, "TOO_MANY_ATTEMPTS_TRY_LATER"):
		return &Error{Op: "sign_in", Message: "too many attempts, try again later", Err: ErrInvalidCredentials}
	default:
		return &Error{Op: "sign_in", Err: fmt.Errorf("provider returned %d %s", status, message)}
	}
}

// # Refresh

// Refresh implements [Provider]. It always performs a network refresh.
func (p *RESTProvider) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	if refreshToken == "" {
		return nil, &Error{Op: "refresh", Message: "missing refresh token", Err: ErrRefreshRejected}
	}

	// An empty access token forces the token source to hit the endpoint.
	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.TokenSource(oauthCtx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			return nil, &Error{Op: "refresh", Message: retrieveErr.ErrorCode, Err: ErrRefreshRejected}
		}
		return nil, &Error{Op: "refresh", Err: err}
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		idToken = token.AccessToken
	}

	grant, err := grantFromIDToken(idToken, token.RefreshToken)
	if err != nil {
		return nil, &Error{Op: "refresh", Err: err}
	}
	if grant.Expiry.IsZero() {
		grant.Expiry = token.Expiry
	}

	return grant, nil
}

// # Revoke

// Revoke implements [Provider].
func (p *RESTProvider) Revoke(ctx context.Context, refreshToken string) error {
	if p.revokeURL == "" || refreshToken == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", refreshToken)
	form.Set("token_type_hint", "refresh_token")

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Op: "revoke", Err: err}
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := p.httpClient.Do(request)
	if err != nil {
		return &Error{Op: "revoke", Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return &Error{Op: "revoke", Err: fmt.Errorf("provider returned %d", response.StatusCode)}
	}
	return nil
}

// # Token Claims

// tokenClaims are the profile claims carried by provider-issued ID tokens.
type tokenClaims struct {
	jwt.RegisteredClaims

	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// grantFromIDToken reads profile claims without verifying the signature.
//
// The token was received directly from the provider over TLS; the REST API
// verifies it on every call.
func grantFromIDToken(idToken, refreshToken string) (*Grant, error) {
	if idToken == "" {
		return nil, errors.New("provider returned no id token")
	}

	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	grant := &Grant{
		Identity: Identity{
			Email:       claims.Email,
			DisplayName: claims.Name,
			AvatarURL:   claims.Picture,
		},
		IDToken:      idToken,
		RefreshToken: refreshToken,
	}
	if claims.ExpiresAt != nil {
		grant.Expiry = claims.ExpiresAt.Time
	}

	return grant, nil
}

func withKey(endpoint, apiKey string) string {
	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	return endpoint + separator + "key=" + url.QueryEscape(apiKey)
}
