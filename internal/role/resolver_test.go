// Copyright (c) 2026 Blood Bridge. All rights reserved.

package role_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/role"
)

// # Test Doubles

type stubFetcher struct {
	calls atomic.Int32

	mu      sync.Mutex
	roles   map[string]role.Role
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *stubFetcher) UserRole(ctx context.Context, email string) (role.Role, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return role.None, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return role.None, f.err
	}
	return f.roles[email], nil
}

func (f *stubFetcher) setRole(email string, r role.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[email] = r
}

func newResolver(fetcher role.Fetcher) (*role.Resolver, *role.MemoryCache) {
	cache := role.NewMemoryCache(time.Minute)
	return role.NewResolver(fetcher, cache, time.Minute, nil), cache
}

// # Resolve

func TestResolver_NoIdentity(t *testing.T) {
	fetcher := &stubFetcher{roles: map[string]role.Role{}}
	resolver, _ := newResolver(fetcher)

	_, err := resolver.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, role.ErrNoIdentity)
	assert.Zero(t, fetcher.calls.Load())
}

func TestResolver_CachesFetchedRole(t *testing.T) {
	fetcher := &stubFetcher{roles: map[string]role.Role{"a@b.c": role.Admin}}
	resolver, cache := newResolver(fetcher)
	ctx := context.Background()

	for range 3 {
		got, err := resolver.Resolve(ctx, "a@b.c")
		require.NoError(t, err)
		assert.Equal(t, role.Admin, got)
	}
	assert.Equal(t, int32(1), fetcher.calls.Load())

	cached, found, err := cache.Get(ctx, "userRole:a@b.c")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, role.Admin, cached)
}

func TestResolver_CachesNone(t *testing.T) {
	fetcher := &stubFetcher{roles: map[string]role.Role{}}
	resolver, _ := newResolver(fetcher)

	for range 2 {
		got, err := resolver.Resolve(context.Background(), "ghost@b.c")
		require.NoError(t, err)
		assert.Equal(t, role.None, got)
	}
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

/*
TestResolver_FailureIsNotCachedOrRetried verifies a network failure surfaces as
LookupError after exactly one attempt and the next call fetches again.
*/
func TestResolver_FailureIsNotCachedOrRetried(t *testing.T) {
	fetcher := &stubFetcher{roles: map[string]role.Role{"d@b.c": role.Donor}, err: errors.New("connection refused")}
	resolver, _ := newResolver(fetcher)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "d@b.c")
	var lookupErr *role.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "d@b.c", lookupErr.Email)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.mu.Unlock()

	got, err := resolver.Resolve(ctx, "d@b.c")
	require.NoError(t, err)
	assert.Equal(t, role.Donor, got)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestResolver_CoalescesConcurrentLookups(t *testing.T) {
	fetcher := &stubFetcher{
		roles:   map[string]role.Role{"v@b.c": role.Volunteer},
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
	}
	resolver, _ := newResolver(fetcher)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]role.Role, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = resolver.Resolve(context.Background(), "v@b.c")
		}()
	}

	<-fetcher.started
	// Give the remaining callers time to join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for _, got := range results {
		assert.Equal(t, role.Volunteer, got)
	}
}

// # Invalidate

/*
TestResolver_InvalidateRefetches verifies invalidate-then-resolve reflects the
current API value and that repeating the pair is idempotent.
*/
func TestResolver_InvalidateRefetches(t *testing.T) {
	fetcher := &stubFetcher{roles: map[string]role.Role{"u@b.c": role.Donor}}
	resolver, _ := newResolver(fetcher)
	ctx := context.Background()

	got, err := resolver.Resolve(ctx, "u@b.c")
	require.NoError(t, err)
	assert.Equal(t, role.Donor, got)

	fetcher.setRole("u@b.c", role.Volunteer)

	for range 2 {
		require.NoError(t, resolver.Invalidate(ctx, "U@B.C"))
		got, err = resolver.Resolve(ctx, "u@b.c")
		require.NoError(t, err)
		assert.Equal(t, role.Volunteer, got)
	}
	assert.Equal(t, int32(3), fetcher.calls.Load())
}

/*
TestResolver_InvalidateDuringFlightSkipsCache verifies a lookup that started
before an invalidation does not write its result to the cache.
*/
func TestResolver_InvalidateDuringFlightSkipsCache(t *testing.T) {
	fetcher := &stubFetcher{
		roles:   map[string]role.Role{"s@b.c": role.Admin},
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	resolver, cache := newResolver(fetcher)
	ctx := context.Background()

	done := make(chan role.Role)
	go func() {
		got, _ := resolver.Resolve(ctx, "s@b.c")
		done <- got
	}()

	<-fetcher.started
	require.NoError(t, resolver.Invalidate(ctx, "s@b.c"))
	close(fetcher.release)

	assert.Equal(t, role.Admin, <-done)

	_, found, err := cache.Get(ctx, role.Key("s@b.c"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolver_InvalidateEmptyEmail(t *testing.T) {
	resolver, _ := newResolver(&stubFetcher{roles: map[string]role.Role{}})
	assert.NoError(t, resolver.Invalidate(context.Background(), ""))
}
