// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package uuid provides the identifier generators used by the portal.

  - Session ids are random (v4) because they are bearer secrets stored in a cookie.
  - Request ids are time-ordered (v7) so log lines sort by arrival.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// NewSessionID returns an unguessable session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewRequestID returns a time-ordered identifier for request correlation.
func NewRequestID() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
