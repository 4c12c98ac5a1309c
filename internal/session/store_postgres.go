// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bloodbridge/portal/internal/platform/dberr"
)

// querier is the subset of [*pgxpool.Pool] the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore keeps sessions in the portal_sessions table so they survive
// restarts of both the portal and Redis.
type PostgresStore struct {
	db querier
}

// NewPostgresStore creates a PostgreSQL-backed session store.
func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

/*
Create inserts a new session row.

Returns:
  - error: Insertion failures
*/
func (store *PostgresStore) Create(ctx context.Context, sess *Session) error {
	const query = `
		INSERT INTO portal_sessions
			(id_hash, email, display_name, avatar_url, id_token, refresh_token, token_expiry, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := store.db.Exec(ctx, query,
		StorageKey(sess.ID),
		sess.Identity.Email,
		sess.Identity.DisplayName,
		sess.Identity.AvatarURL,
		sess.IDToken,
		sess.RefreshToken,
		sess.TokenExpiry,
		sess.CreatedAt,
		sess.ExpiresAt,
	)
	if dberr.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return dberr.Wrap(err, "postgres_session_create_failed")
}

/*
Get loads an unexpired session by id.

Returns:
  - *Session: The stored session
  - error: [ErrNotFound] when absent or expired
*/
func (store *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	const query = `
		SELECT email, display_name, avatar_url, id_token, refresh_token, token_expiry, created_at, expires_at
		FROM portal_sessions
		WHERE id_hash = $1 AND expires_at > now()`

	sess := &Session{ID: id}
	err := store.db.QueryRow(ctx, query, StorageKey(id)).Scan(
		&sess.Identity.Email,
		&sess.Identity.DisplayName,
		&sess.Identity.AvatarURL,
		&sess.IDToken,
		&sess.RefreshToken,
		&sess.TokenExpiry,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if dberr.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_session_get_failed")
	}
	return sess, nil
}

// Update persists refreshed token fields.
func (store *PostgresStore) Update(ctx context.Context, sess *Session) error {
	const query = `
		UPDATE portal_sessions
		SET id_token = $2, refresh_token = $3, token_expiry = $4
		WHERE id_hash = $1`

	_, err := store.db.Exec(ctx, query, StorageKey(sess.ID), sess.IDToken, sess.RefreshToken, sess.TokenExpiry)
	return dberr.Wrap(err, "postgres_session_update_failed")
}

// Delete removes the session row.
func (store *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := store.db.Exec(ctx, `DELETE FROM portal_sessions WHERE id_hash = $1`, StorageKey(id))
	return dberr.Wrap(err, "postgres_session_delete_failed")
}

// Ping checks database connectivity.
func (store *PostgresStore) Ping(ctx context.Context) error {
	return store.db.Ping(ctx)
}

// PurgeExpired deletes lapsed rows and returns how many were removed.
func (store *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := store.db.Exec(ctx, `DELETE FROM portal_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres_session_purge_failed")
	}
	return tag.RowsAffected(), nil
}
