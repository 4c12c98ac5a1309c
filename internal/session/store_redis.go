// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bloodbridge/portal/internal/platform/constants"
)

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: constants.RedisPrefixSession}
}

func (store *RedisStore) key(id string) string {
	return store.prefix + StorageKey(id)
}

// Create stores a new session with a TTL matching ExpiresAt.
func (store *RedisStore) Create(ctx context.Context, sess *Session) error {
	return store.write(ctx, sess, "create")
}

// Get loads a session. Missing keys map to [ErrNotFound].
func (store *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := store.client.Get(ctx, store.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	sess := &Session{}
	if err := json.Unmarshal(payload, sess); err != nil {
		return nil, fmt.Errorf("redis_session_decode_failed: %w", err)
	}
	sess.ID = id
	return sess, nil
}

// Update rewrites the session and keeps its original expiry.
func (store *RedisStore) Update(ctx context.Context, sess *Session) error {
	return store.write(ctx, sess, "update")
}

// Delete removes the session. Unknown ids are not an error.
func (store *RedisStore) Delete(ctx context.Context, id string) error {
	if err := store.client.Del(ctx, store.key(id)).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (store *RedisStore) Ping(ctx context.Context) error {
	return store.client.Ping(ctx).Err()
}

func (store *RedisStore) write(ctx context.Context, sess *Session, op string) error {
	if sess.ID == "" {
		return fmt.Errorf("redis_session_%s_failed: missing id", op)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return store.Delete(ctx, sess.ID)
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	if op == "create" {
		created, err := store.client.SetNX(ctx, store.key(sess.ID), payload, ttl).Result()
		if err != nil {
			return fmt.Errorf("redis_session_create_failed: %w", err)
		}
		if !created {
			return ErrDuplicate
		}
		return nil
	}

	if err := store.client.Set(ctx, store.key(sess.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_%s_failed: %w", op, err)
	}
	return nil
}
