// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session

import (
	"net/http"
	"time"

	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/pkg/uuid"
)

// CookieOptions controls how the session cookie is issued.
type CookieOptions struct {
	// Secure should be true everywhere except plain-HTTP development.
	Secure bool
}

// SetCookie issues the session cookie.
func SetCookie(writer http.ResponseWriter, sessionID string, expiresAt time.Time, options CookieOptions) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   options.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie from the browser.
func ClearCookie(writer http.ResponseWriter, options CookieOptions) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   options.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie returns the session id carried by the request. Malformed values
// are treated as absent so they never reach a store query.
func ReadCookie(request *http.Request) (string, bool) {
	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil || !uuid.Valid(cookie.Value) {
		return "", false
	}
	return cookie.Value, true
}
