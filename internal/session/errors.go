// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session

import (
	"errors"
	"fmt"
)

// ErrDetached is returned by a transport whose owning request already finished.
var ErrDetached = errors.New("session: transport detached from its request")

// AuthError reports that no usable token could be obtained. It is
// session-fatal: the session has been ended and the browser sent to sign-in.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SessionExpiredError reports a 401 from the REST API. It is session-fatal.
type SessionExpiredError struct {
	Method string
	URL    string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session: %s %s: unauthorized, session ended", e.Method, e.URL)
}

// ForbiddenError reports a 403 from the REST API. It is request-fatal only.
type ForbiddenError struct {
	Method string
	URL    string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("session: %s %s: forbidden", e.Method, e.URL)
}

// IsSessionFatal reports whether err ended the session.
func IsSessionFatal(err error) bool {
	var authErr *AuthError
	var expiredErr *SessionExpiredError
	return errors.As(err, &authErr) || errors.As(err, &expiredErr)
}

// Handled reports whether the interceptor already redirected for err, so the
// caller should stop rendering instead of writing an error page.
func Handled(err error) bool {
	var forbiddenErr *ForbiddenError
	return IsSessionFatal(err) || errors.As(err, &forbiddenErr) || errors.Is(err, ErrDetached)
}
