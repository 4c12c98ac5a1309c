// Copyright (c) 2026 Blood Bridge. All rights reserved.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process [Store] for development and tests.
//
// Values are stored encoded so each Get hands out an independent copy, the
// same as the networked stores.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates an empty store that sweeps expired sessions every minute.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (store *MemoryStore) Create(_ context.Context, sess *Session) error {
	return store.write(sess, true)
}

func (store *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	value, ok := store.items.Get(StorageKey(id))
	if !ok {
		return nil, ErrNotFound
	}

	sess := &Session{}
	if err := json.Unmarshal(value.([]byte), sess); err != nil {
		return nil, fmt.Errorf("memory_session_decode_failed: %w", err)
	}
	sess.ID = id
	return sess, nil
}

func (store *MemoryStore) Update(_ context.Context, sess *Session) error {
	return store.write(sess, false)
}

func (store *MemoryStore) Delete(_ context.Context, id string) error {
	store.items.Delete(StorageKey(id))
	return nil
}

func (store *MemoryStore) Ping(context.Context) error { return nil }

// Len reports how many sessions are held, including ones not yet swept.
func (store *MemoryStore) Len() int {
	return store.items.ItemCount()
}

func (store *MemoryStore) write(sess *Session, create bool) error {
	if sess.ID == "" {
		return fmt.Errorf("memory_session_write_failed: missing id")
	}

	key := StorageKey(sess.ID)
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		store.items.Delete(key)
		return nil
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("memory_session_encode_failed: %w", err)
	}
	if create {
		if err := store.items.Add(key, payload, ttl); err != nil {
			return ErrDuplicate
		}
		return nil
	}
	store.items.Set(key, payload, ttl)
	return nil
}
