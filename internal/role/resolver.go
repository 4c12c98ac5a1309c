// Copyright (c) 2026 Blood Bridge. All rights reserved.

package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/metrics"
)

// Fetcher reads the role stored for an email. Implementations return [None]
// with a nil error when the API has no record.
type Fetcher interface {
	UserRole(ctx context.Context, email string) (Role, error)
}

// # Errors

// ErrNoIdentity is returned when a lookup is attempted without an email.
var ErrNoIdentity = errors.New("role: lookup requires an email")

// LookupError reports a failed fetch. Gates treat it as a denial.
type LookupError struct {
	Email string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("role: lookup for %s failed: %v", e.Email, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// # Resolver

// Resolver fetches, coalesces and caches role lookups.
//
// Every invalidation advances a generation counter. A lookup only writes to the
// cache if the generation it started under is still current, so a fetch that
// was in flight during a sign-out cannot repopulate the entry afterwards.
type Resolver struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Metrics

	flights singleflight.Group

	mu         sync.Mutex
	generation uint64
}

// NewResolver builds a resolver. m may be nil.
func NewResolver(fetcher Fetcher, cache Cache, ttl time.Duration, m *metrics.Metrics) *Resolver {
	return &Resolver{fetcher: fetcher, cache: cache, ttl: ttl, metrics: m}
}

// Resolve returns the role for email, serving from cache when possible.
//
// Concurrent calls for the same email share one fetch. A failed fetch is
// returned as [*LookupError] and is not cached, so the next call tries again.
func (r *Resolver) Resolve(ctx context.Context, email string) (Role, error) {
	if email == "" {
		return None, ErrNoIdentity
	}

	logger := ctxutil.GetLogger(ctx)
	key := Key(email)

	cached, found, err := r.cache.Get(ctx, key)
	if err != nil {
		logger.WarnContext(ctx, "role_cache_read_failed", slog.String("key", key), slog.Any("error", err))
	}
	if found {
		r.metrics.RoleLookup("hit")
		return cached, nil
	}

	generation := r.currentGeneration()
	flightKey := key + "#" + strconv.FormatUint(generation, 10)

	value, err, shared := r.flights.Do(flightKey, func() (any, error) {
		fetched, fetchErr := r.fetcher.UserRole(ctx, email)
		if fetchErr != nil {
			return None, &LookupError{Email: email, Err: fetchErr}
		}
		r.store(ctx, key, fetched, generation)
		return fetched, nil
	})
	if err != nil {
		r.metrics.RoleLookup("error")
		logger.WarnContext(ctx, "role_lookup_failed", slog.String("email", email), slog.Any("error", err))
		return None, err
	}

	resolved, _ := value.(Role)
	if resolved == None {
		r.metrics.RoleLookup("none")
	} else {
		r.metrics.RoleLookup("fetched")
	}
	logger.DebugContext(ctx, "role_resolved",
		slog.String("email", email),
		slog.String("role", resolved.String()),
		slog.Bool("shared", shared),
	)

	return resolved, nil
}

// Invalidate drops the cached role for email and discards in-flight results.
func (r *Resolver) Invalidate(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}

	r.mu.Lock()
	r.generation++
	r.mu.Unlock()

	return r.cache.Delete(ctx, Key(email))
}

// Ping reports the health of the backing cache.
func (r *Resolver) Ping(ctx context.Context) error {
	return r.cache.Ping(ctx)
}

func (r *Resolver) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// store writes under the lock so an Invalidate cannot slip between the
// generation check and the write.
func (r *Resolver) store(ctx context.Context, key string, value Role, generation uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generation != generation {
		return
	}
	if err := r.cache.Set(ctx, key, value, r.ttl); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "role_cache_write_failed", slog.String("key", key), slog.Any("error", err))
	}
}
