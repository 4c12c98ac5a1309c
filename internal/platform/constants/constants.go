// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package constants provides centralized, immutable values for the entire portal.

It defines default timeouts, rate limits, navigation targets, and cross-cutting
keys that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Navigation: Well-known redirect targets used by the gate and the interceptor.
  - Sessions: Cookie configuration and cache key prefixes.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "bloodbridge-portal"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 25 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// OutboundTimeout bounds a single call to the REST API or the identity provider.
	OutboundTimeout = 10 * time.Second

	// BackgroundLookupTimeout bounds a role lookup that outlives its request.
	BackgroundLookupTimeout = 15 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Navigation

const (
	// PathLogin is the sign-in view.
	PathLogin = "/login"

	// PathForbidden is the static view shown after an authorization denial.
	PathForbidden = "/forbidden"

	// PathHome is the landing page and the default post-login destination.
	PathHome = "/"

	// QueryFrom carries the attempted location through the sign-in flow.
	QueryFrom = "from"
)

// # Sessions

const (
	// SessionCookieName is the cookie holding the opaque session identifier.
	SessionCookieName = "bb_session"

	// TokenRefreshSkew renews ID tokens slightly before their stated expiry.
	TokenRefreshSkew = 30 * time.Second

	// SessionPurgeInterval is how often the postgres store deletes lapsed rows.
	SessionPurgeInterval = 15 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
	HeaderCacheControl  = "Cache-Control"
	HeaderRefresh       = "Refresh"
	HeaderRetryAfter    = "Retry-After"
	HeaderReferer       = "Referer"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldStatus  = "status"
	FieldChecks  = "checks"
	FieldApp     = "app"
	FieldVersion = "version"
)

// # Cache Taxonomy

const (
	RedisPrefixSession = "portal:session:"
	RedisPrefixRole    = "portal:"
	CacheKeyPrefixRole = "userRole:"
)
