// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package api wires the HTTP router, middleware chain, access policy and page
handlers into a runnable [http.Server].

Architecture:

  - This package is the composition root for the HTTP transport (chi router).
  - Every page route is wrapped with the gate the access policy assigns to its
    pattern when it is registered; routes absent from the policy are public.
  - Only this package and cmd/portal import net/http server primitives.
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bloodbridge/portal/internal/access"
	"github.com/bloodbridge/portal/internal/platform/config"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/metrics"
	"github.com/bloodbridge/portal/internal/platform/middleware"
	"github.com/bloodbridge/portal/internal/web"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// Dependencies groups everything the router needs, constructed in main.
type Dependencies struct {
	// Liveness is the /health handler; always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; 200 when the session store and role cache answer.
	Readiness http.HandlerFunc

	Metrics  *metrics.Metrics
	Sessions middleware.SessionLoader
	Guard    *access.Guard
	Policy   *access.Policy
	Pages    *web.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers every page behind its gate. It fails when the policy names a
// pattern no page is registered under, since that entry would protect nothing.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, deps Dependencies) (*Server, error) {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(deps.Metrics.Middleware)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(ctx))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.LoadSession(deps.Sessions))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", deps.Liveness)
	r.Get("/ready", deps.Readiness)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// # Pages
	registered := make(map[string]bool)
	for _, route := range deps.Pages.Routes() {
		r.Method(route.Method, route.Pattern, deps.Guard.Protect(deps.Policy, route.Pattern, route.Handler))
		registered[route.Pattern] = true
	}
	r.NotFound(deps.Pages.NotFound)

	var orphaned []string
	for _, pattern := range deps.Policy.Patterns() {
		if !registered[pattern] {
			orphaned = append(orphaned, pattern)
		}
	}
	if len(orphaned) > 0 {
		sort.Strings(orphaned)
		return nil, fmt.Errorf("api: access policy lists unregistered routes: %s", strings.Join(orphaned, ", "))
	}

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server. It blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
