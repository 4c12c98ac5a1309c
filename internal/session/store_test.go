// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/session"
)

func liveSession(id string) *session.Session {
	now := time.Now()
	return &session.Session{
		ID:          id,
		Identity:    identity.Identity{Email: "donor@example.com"},
		IDToken:     "id-token",
		TokenExpiry: now.Add(time.Hour),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

const rawID = "3f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

func TestStorageKey(t *testing.T) {
	key := session.StorageKey(rawID)

	assert.Len(t, key, 43)
	assert.NotContains(t, key, rawID)
	assert.Equal(t, key, session.StorageKey(rawID))
	assert.NotEqual(t, key, session.StorageKey("9a8b7c6d-5e4f-4a3b-9c1d-0e2f3a4b5c6d"))
}

/*
TestSession_EncodingOmitsID verifies that stored payloads never carry the
cookie value; stores restore the id from the caller's argument.
*/
func TestSession_EncodingOmitsID(t *testing.T) {
	payload, err := json.Marshal(liveSession(rawID))
	require.NoError(t, err)
	assert.NotContains(t, string(payload), rawID)

	store := session.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), liveSession(rawID)))

	loaded, err := store.Get(context.Background(), rawID)
	require.NoError(t, err)
	assert.Equal(t, rawID, loaded.ID)
}

// # Memory Store

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sess := liveSession("s-1")

	require.NoError(t, store.Create(ctx, sess))
	assert.ErrorIs(t, store.Create(ctx, sess), session.ErrDuplicate)

	sess.IDToken = "rotated"
	require.NoError(t, store.Update(ctx, sess))

	loaded, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", loaded.IDToken)
	assert.Equal(t, "donor@example.com", loaded.Email())

	require.NoError(t, store.Delete(ctx, "s-1"))
	require.NoError(t, store.Delete(ctx, "s-1"))

	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_LapsedSessionIsNotStored(t *testing.T) {
	store := session.NewMemoryStore()
	sess := liveSession("s-1")
	sess.ExpiresAt = time.Now().Add(-time.Minute)

	require.NoError(t, store.Create(context.Background(), sess))
	assert.Zero(t, store.Len())
}

func TestMemoryStore_RejectsMissingID(t *testing.T) {
	assert.Error(t, session.NewMemoryStore().Create(context.Background(), liveSession("")))
}

// # Postgres Store

type fakeRow struct{ err error }

func (r fakeRow) Scan(...any) error { return r.err }

type fakeQuerier struct {
	execErr  error
	rowErr   error
	affected string
	args     [][]any
}

func (q *fakeQuerier) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	q.args = append(q.args, args)
	return pgconn.NewCommandTag(q.affected), q.execErr
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.args = append(q.args, args)
	return fakeRow{err: q.rowErr}
}

func (q *fakeQuerier) Ping(context.Context) error { return nil }

/*
TestPostgresStore_ErrorMapping verifies that driver errors surface as the
store sentinels callers branch on.
*/
func TestPostgresStore_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("missing_row", func(t *testing.T) {
		store := session.NewPostgresStore(&fakeQuerier{rowErr: pgx.ErrNoRows})
		_, err := store.Get(ctx, "s-1")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("duplicate_id", func(t *testing.T) {
		store := session.NewPostgresStore(&fakeQuerier{execErr: &pgconn.PgError{Code: pgerrcode.UniqueViolation}})
		assert.ErrorIs(t, store.Create(ctx, liveSession("s-1")), session.ErrDuplicate)
	})

	t.Run("driver_failure", func(t *testing.T) {
		cause := errors.New("connection reset")
		store := session.NewPostgresStore(&fakeQuerier{rowErr: cause})
		_, err := store.Get(ctx, "s-1")
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("missing_table", func(t *testing.T) {
		store := session.NewPostgresStore(&fakeQuerier{execErr: &pgconn.PgError{Code: pgerrcode.UndefinedTable}})
		err := store.Delete(ctx, "s-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run migrations")
	})
}

/*
TestPostgresStore_KeysByHash verifies that every statement addresses the row
by the hashed id and the raw cookie value never reaches the database.
*/
func TestPostgresStore_KeysByHash(t *testing.T) {
	ctx := context.Background()
	db := &fakeQuerier{rowErr: pgx.ErrNoRows}
	store := session.NewPostgresStore(db)
	sess := liveSession(rawID)

	require.NoError(t, store.Create(ctx, sess))
	require.NoError(t, store.Update(ctx, sess))
	require.NoError(t, store.Delete(ctx, rawID))
	_, err := store.Get(ctx, rawID)
	require.ErrorIs(t, err, session.ErrNotFound)

	require.Len(t, db.args, 4)
	for _, args := range db.args {
		assert.Equal(t, session.StorageKey(rawID), args[0])
		assert.NotContains(t, args, rawID)
	}
}

func TestPostgresStore_PurgeExpired(t *testing.T) {
	store := session.NewPostgresStore(&fakeQuerier{affected: "DELETE 3"})

	removed, err := store.PurgeExpired(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)
}
