// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package role resolves the authorization role of a signed-in identity.

Roles live in the REST API keyed by email. The [Resolver] fetches them on
demand, coalesces concurrent lookups for the same email and caches results
under "userRole:<email>" until they expire or are invalidated (sign-out, admin
role mutation). Lookups are never retried automatically.
*/
package role

import (
	"fmt"
	"slices"
	"strings"
)

// # Roles

// Role is the authorization level granted to an account.
type Role string

const (
	// None means the REST API holds no role for the email.
	None Role = ""

	// Donor can create and track their own donation requests.
	Donor Role = "donor"

	// Volunteer can moderate donation requests and blog content.
	Volunteer Role = "volunteer"

	// Admin has unrestricted dashboard access, including user management.
	Admin Role = "admin"
)

// All lists every assignable role.
var All = []Role{Donor, Volunteer, Admin}

// Parse maps an API value to a [Role]. Unknown values are an error; an empty
// value is [None].
func Parse(value string) (Role, error) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	if normalized == None {
		return None, nil
	}
	if !slices.Contains(All, normalized) {
		return None, fmt.Errorf("role: unknown role %q", value)
	}
	return normalized, nil
}

// Names returns the assignable roles as API values.
func Names() []string {
	names := make([]string, len(All))
	for i, r := range All {
		names[i] = string(r)
	}
	return names
}

// Valid reports whether r is an assignable role.
func (r Role) Valid() bool {
	return slices.Contains(All, r)
}

func (r Role) String() string {
	if r == None {
		return "none"
	}
	return string(r)
}

// # Role Sets

// Set is an allowed-role collection used by access gates.
type Set []Role

// Contains reports membership. [None] is never a member.
func (s Set) Contains(r Role) bool {
	if r == None {
		return false
	}
	return slices.Contains(s, r)
}

// Empty reports whether the set admits no specific role.
func (s Set) Empty() bool {
	return len(s) == 0
}

func (s Set) String() string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = string(r)
	}
	return "[" + strings.Join(names, ",") + "]"
}
