// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Command portal is the entry point for the Blood Bridge web portal.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to the configured backends (Redis, PostgreSQL).
//  4. Run session-table migrations when sessions live in PostgreSQL.
//  5. Wire identity, sessions, role resolution and the access gate.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bloodbridge/portal/internal/access"
	"github.com/bloodbridge/portal/internal/api"
	"github.com/bloodbridge/portal/internal/backend"
	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/platform/config"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/metrics"
	"github.com/bloodbridge/portal/internal/platform/migration"
	pgstore "github.com/bloodbridge/portal/internal/platform/postgres"
	redisstore "github.com/bloodbridge/portal/internal/platform/redis"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/internal/session"
	"github.com/bloodbridge/portal/internal/web"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("session_store", cfg.SessionStore),
		slog.String("role_cache", cfg.RoleCache),
	)

	// Cancelled on shutdown; stops the rate limiter janitor and the session purge loop.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	m, err := metrics.New()
	must(log, err, "register metrics")

	// ── 3. Redis ──────────────────────────────────────────────────────────
	var rdb *goredis.Client
	if cfg.NeedsRedis() {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()
	}

	// ── 4. Session Store ──────────────────────────────────────────────────
	var store session.Store
	switch cfg.SessionStore {
	case config.StoreRedis:
		store = session.NewRedisStore(rdb)
	case config.StorePostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing postgres pool")
			pool.Close()
		}()

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		postgresStore := session.NewPostgresStore(pool)
		go purgeExpiredSessions(rootCtx, postgresStore, log)
		store = postgresStore
	default:
		log.Warn("memory_session_store", slog.String("note", "sessions are lost on restart"))
		store = session.NewMemoryStore()
	}

	var cache role.Cache
	if cfg.RoleCache == config.StoreRedis {
		cache = role.NewRedisCache(rdb, cfg.RoleCacheTTL)
	} else {
		cache = role.NewMemoryCache(cfg.RoleCacheTTL)
	}

	// ── 5. Identity & Sessions ────────────────────────────────────────────
	provider, err := identity.NewRESTProvider(identity.RESTOptions{
		SignInURL:  cfg.IdentitySignInURL,
		TokenURL:   cfg.IdentityTokenURL,
		RevokeURL:  cfg.IdentityRevokeURL,
		APIKey:     cfg.IdentityAPIKey,
		HTTPClient: &http.Client{Timeout: constants.OutboundTimeout},
	})
	must(log, err, "initialize identity provider")

	manager := session.NewManager(provider, store, session.Options{
		TTL:    cfg.SessionTTL,
		Cookie: session.CookieOptions{Secure: cfg.SessionCookieSecure},
	})
	interceptor := session.NewInterceptor(manager, nil, m)

	// ── 6. REST API & Roles ───────────────────────────────────────────────
	public, err := backend.New(cfg.APIBaseURL, nil)
	must(log, err, "initialize api client")

	binder := backend.NewBinder(public, interceptor, manager)
	resolver := role.NewResolver(backend.NewRoleFetcher(binder), cache, cfg.RoleCacheTTL, m)

	// A signed-out user's cached role must not outlive the session.
	manager.OnSignOut(func(ctx context.Context, who identity.Identity) error {
		return resolver.Invalidate(ctx, who.Email)
	})

	// ── 7. Access Gate & Pages ────────────────────────────────────────────
	policy, err := access.LoadPolicy(cfg.AccessPolicyPath)
	must(log, err, "load access policy")

	renderer, err := web.NewRenderer()
	must(log, err, "parse templates")

	pages := web.NewHandler(renderer, manager, resolver, binder)
	guard := access.NewGuard(resolver, access.GuardOptions{
		LoadingTimeout: cfg.GateLoadingTimeout,
		SubmitTimeout:  cfg.GateSubmitTimeout,
		Loading:        pages.Loading,
		Metrics:        m,
	})

	liveness, readiness := api.NewHealthHandlers([]api.HealthCheck{
		{Name: "session_store", Check: store.Ping},
		{Name: "role_cache", Check: resolver.Ping},
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server, err := api.NewServer(rootCtx, cfg, log, api.Dependencies{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   m,
		Sessions:  manager,
		Guard:     guard,
		Policy:    policy,
		Pages:     pages,
	})
	must(log, err, "build router")

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}
	rootCancel()

	log.Info("server_stopped_cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", "bloodbridge"))
}

// purgeExpiredSessions deletes lapsed session rows until ctx is cancelled.
// Expired rows are already ignored on read; this only keeps the table small.
func purgeExpiredSessions(ctx context.Context, store *session.PostgresStore, log *slog.Logger) {
	ticker := time.NewTicker(constants.SessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn("session_purge_failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				log.Info("session_purge_completed", slog.Int64("removed", removed))
			}
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
// Only for startup wiring; request paths return errors.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
