// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package identity defines the signed-in principal and the contract of the
external identity provider that issues and refreshes its tokens.

The portal never stores passwords. It exchanges email/password for a [Grant]
at sign-in and later trades the refresh token for fresh ID tokens.
*/
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Identity is a signed-in principal. Email is the stable identifier.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Grant is what the provider hands back after sign-in or refresh.
type Grant struct {
	Identity     Identity
	IDToken      string
	RefreshToken string
	Expiry       time.Time
}

// Provider is the identity service the portal delegates authentication to.
type Provider interface {
	// SignIn exchanges credentials for a grant.
	SignIn(ctx context.Context, email, password string) (*Grant, error)

	// Refresh trades a refresh token for a new ID token.
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)

	// Revoke ends the provider-side session. Providers without revocation return nil.
	Revoke(ctx context.Context, refreshToken string) error
}

// # Errors

var (
	// ErrInvalidCredentials is returned when the provider rejects email/password.
	ErrInvalidCredentials = errors.New("identity: invalid email or password")

	// ErrRefreshRejected is returned when the provider refuses a refresh token.
	ErrRefreshRejected = errors.New("identity: refresh token rejected")

	// ErrUserDisabled is returned when the account is disabled at the provider.
	ErrUserDisabled = errors.New("identity: account disabled")
)

// Error wraps a provider failure with the operation that produced it.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("identity: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
