// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package access decides whether the current identity may render a protected view.

A [Gate] is parameterized by its allowed-role set. Its [Gate.Decide] is a pure
state machine over two independently settling inputs, identity and role:

	Loading          either input still pending, no navigation
	Unauthenticated  no identity, redirect to /login carrying the location
	Forbidden        role missing, unknown or failed, redirect to /forbidden (replace)
	Allowed          render

[Guard] is the HTTP middleware form that gathers those inputs per request.
*/
package access

import (
	"strings"

	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/navigate"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/role"
)

// # States

// State is the outcome of one gate decision.
type State int

const (
	Loading State = iota
	Unauthenticated
	Forbidden
	Allowed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Allowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// # Inputs

// IdentityStatus is the identity input to a decision.
type IdentityStatus struct {
	Pending  bool
	Identity *identity.Identity
}

// IdentityPending reports an identity still being resolved.
func IdentityPending() IdentityStatus { return IdentityStatus{Pending: true} }

// IdentityResolved reports a settled identity; nil means signed out.
func IdentityResolved(who *identity.Identity) IdentityStatus {
	return IdentityStatus{Identity: who}
}

// RoleStatus is the role input to a decision.
type RoleStatus struct {
	Pending bool
	Role    role.Role
	Err     error
}

// RolePending reports a role lookup still in flight.
func RolePending() RoleStatus { return RoleStatus{Pending: true} }

// RoleResolved reports a settled lookup; [role.None] means no record.
func RoleResolved(r role.Role) RoleStatus { return RoleStatus{Role: r} }

// RoleFailed reports a lookup that settled with an error.
func RoleFailed(err error) RoleStatus { return RoleStatus{Err: err} }

// # Decision

// Decision is derived per request and never cached.
type Decision struct {
	State State

	// Redirect is set for Unauthenticated and Forbidden.
	Redirect *navigate.Redirect

	// Role is the settled role when the gate looked one up.
	Role role.Role
}

// # Gate

// Gate admits identities whose role is in Allowed.
//
// An empty Allowed set admits any signed-in identity and never consults the
// role; that is the "private" gate.
type Gate struct {
	Name    string
	Allowed role.Set
}

// NewGate returns the gate for the given roles.
func NewGate(roles ...role.Role) Gate {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return Gate{Name: strings.Join(names, "+"), Allowed: role.Set(roles)}
}

// DonorOnly admits donors.
func DonorOnly() Gate { return NewGate(role.Donor) }

// AdminOnly admits admins.
func AdminOnly() Gate { return NewGate(role.Admin) }

// VolunteerOnly admits volunteers.
func VolunteerOnly() Gate { return NewGate(role.Volunteer) }

// Authenticated admits any signed-in identity.
func Authenticated() Gate { return Gate{Name: "authenticated"} }

// NeedsRole reports whether deciding requires a role lookup.
func (g Gate) NeedsRole() bool {
	return !g.Allowed.Empty()
}

// Decide maps the two inputs to a [Decision]. location is the attempted
// path and query, carried to sign-in.
func (g Gate) Decide(who IdentityStatus, r RoleStatus, location string) Decision {
	if who.Pending || (g.NeedsRole() && r.Pending) {
		return Decision{State: Loading}
	}

	if who.Identity == nil {
		return Decision{
			State:    Unauthenticated,
			Redirect: &navigate.Redirect{Path: constants.PathLogin, From: location},
		}
	}

	if !g.NeedsRole() {
		return Decision{State: Allowed, Role: r.Role}
	}

	// Lookup failures fail closed.
	if r.Err != nil || !g.Allowed.Contains(r.Role) {
		return Decision{
			State:    Forbidden,
			Redirect: &navigate.Redirect{Path: constants.PathForbidden, Replace: true},
			Role:     r.Role,
		}
	}

	return Decision{State: Allowed, Role: r.Role}
}
