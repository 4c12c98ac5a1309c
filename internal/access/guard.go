// Copyright (c) 2026 Blood Bridge. All rights reserved.

package access

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bloodbridge/portal/internal/navigate"
	"github.com/bloodbridge/portal/internal/platform/apperr"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/ctxkey"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/metrics"
	"github.com/bloodbridge/portal/internal/platform/respond"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/internal/session"
)

// RoleResolver looks up the role for an email. [*role.Resolver] implements it.
type RoleResolver interface {
	Resolve(ctx context.Context, email string) (role.Role, error)
}

// GuardOptions configures a [Guard].
type GuardOptions struct {
	// LoadingTimeout is how long a request waits for the role before the
	// loading view is rendered instead.
	LoadingTimeout time.Duration

	// Loading writes the loading view body. The guard has already set the
	// status and headers.
	Loading func(writer http.ResponseWriter, request *http.Request)

	// SubmitTimeout is how long a form submission (any method but GET or
	// HEAD) waits for the role. A submission is never answered with the
	// loading view, whose reload would drop the form; it gets 503 instead.
	SubmitTimeout time.Duration

	Metrics *metrics.Metrics
}

// Guard applies gates to HTTP handlers.
type Guard struct {
	resolver      RoleResolver
	timeout       time.Duration
	submitTimeout time.Duration
	loading       func(http.ResponseWriter, *http.Request)
	metrics       *metrics.Metrics
}

// NewGuard builds the middleware factory.
func NewGuard(resolver RoleResolver, options GuardOptions) *Guard {
	guard := &Guard{
		resolver:      resolver,
		timeout:       options.LoadingTimeout,
		submitTimeout: options.SubmitTimeout,
		loading:       options.Loading,
		metrics:       options.Metrics,
	}
	if guard.timeout <= 0 {
		guard.timeout = 3 * time.Second
	}
	if guard.submitTimeout <= 0 {
		guard.submitTimeout = constants.BackgroundLookupTimeout
	}
	if guard.loading == nil {
		guard.loading = func(writer http.ResponseWriter, _ *http.Request) {
			_, _ = writer.Write([]byte("Loading…"))
		}
	}
	return guard
}

// Require returns middleware that only lets identities admitted by gate through.
func (g *Guard) Require(gate Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			navigator, request := navigate.ForRequest(writer, request)
			ctx := request.Context()
			submission := request.Method != http.MethodGet && request.Method != http.MethodHead

			wait := g.timeout
			if submission {
				wait = g.submitTimeout
			}

			who := IdentityResolved(nil)
			// Without an email the lookup is disabled, so the role input is settled.
			roleStatus := RoleResolved(role.None)

			if sess, ok := session.FromContext(ctx); ok {
				signedIn := sess.Identity
				who = IdentityResolved(&signedIn)
				if gate.NeedsRole() {
					roleStatus = g.lookup(ctx, sess.Email(), wait)
				}
			}

			decision := gate.Decide(who, roleStatus, navigator.Location())
			g.metrics.GateDecision(gate.Name, decision.State.String())

			logger := ctxutil.GetLogger(ctx)
			logger.DebugContext(ctx, "gate_decided",
				slog.String("gate", gate.Name),
				slog.String("state", decision.State.String()),
				slog.String("role", decision.Role.String()),
			)

			switch decision.State {
			case Loading:
				// The lookup keeps running after this response; it must not
				// redirect a response that is already written.
				if navigator.Detach() {
					return
				}
				if submission {
					writer.Header().Set(constants.HeaderRetryAfter, "1")
					respond.Error(writer, request, apperr.ServiceUnavailable("Your access is still being checked, please submit again"))
					return
				}
				writer.Header().Set(constants.HeaderCacheControl, "no-store")
				writer.Header().Set(constants.HeaderRefresh, "1")
				writer.WriteHeader(http.StatusAccepted)
				g.loading(writer, request)

			case Unauthenticated, Forbidden:
				if roleStatus.Err != nil {
					logger.WarnContext(ctx, "gate_failed_closed", slog.Any("error", roleStatus.Err))
				}
				navigator.Navigate(*decision.Redirect)

			case Allowed:
				next.ServeHTTP(writer, request.WithContext(WithRole(ctx, decision.Role)))

			default:
				panic(fmt.Sprintf("access: unhandled state %v", decision.State))
			}
		})
	}
}

// Protect wraps handler with the policy's gate for pattern, if any. Public
// patterns are returned unchanged.
func (g *Guard) Protect(policy *Policy, pattern string, handler http.Handler) http.Handler {
	gate, ok := policy.Route(pattern)
	if !ok {
		return handler
	}
	return g.Require(gate)(handler)
}

// lookup waits up to wait for the role. A lookup that misses the deadline
// keeps running detached from the request so its result warms the cache for
// the automatic reload.
func (g *Guard) lookup(ctx context.Context, email string, wait time.Duration) RoleStatus {
	result := make(chan RoleStatus, 1)

	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.BackgroundLookupTimeout)
	go func() {
		defer cancel()
		resolved, err := g.resolver.Resolve(lookupCtx, email)
		if err != nil {
			result <- RoleFailed(err)
			return
		}
		result <- RoleResolved(resolved)
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case status := <-result:
		return status
	case <-timer.C:
		return RolePending()
	case <-ctx.Done():
		return RolePending()
	}
}

// # Context

// WithRole stores the role admitted by the gate.
func WithRole(ctx context.Context, r role.Role) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRole, r)
}

// RoleFromContext returns the role admitted by the gate, or [role.None].
func RoleFromContext(ctx context.Context) role.Role {
	r, _ := ctx.Value(ctxkey.KeyRole).(role.Role)
	return r
}
