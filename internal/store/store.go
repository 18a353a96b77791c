// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package store persists session state in BadgerDB. Every key is scoped
// by the logged-in user's identity, and every value carries its
// last-updated timestamp so callers can reason about staleness.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("store: key not found")

// Record is a stored value plus its last-updated timestamp.
type Record struct {
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is a user-scoped key-value store backed by BadgerDB.
// The system assumes single-writer access per session.
type Store struct {
	db     *badger.DB
	prefix string
	logger zerolog.Logger
}

// Open opens (or creates) a Badger database at path. An empty path
// opens an in-memory database, which tests use.
func Open(path string, logger zerolog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

// New creates a store scoped to the given user identity.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(db *badger.DB, userID string, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		prefix: "user:" + userID + ":",
		logger: logger.With().Str("component", "store").Logger(),
	}
}

func (s *Store) key(k string) []byte {
	return []byte(s.prefix + k)
}

// Get retrieves the record stored under key. Returns ErrNotFound when
// the key has never been set.
func (s *Store) Get(key string) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %q: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Set stores value (already JSON-encoded) under key with the current
// timestamp.
func (s *Store) Set(key string, value json.RawMessage) error {
	rec := Record{Value: value, UpdatedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record for %q: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(s.key(key), data); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return nil
	})
}

// SetJSON marshals v and stores it under key.
func (s *Store) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", key, err)
	}
	return s.Set(key, data)
}

// GetJSON retrieves key and unmarshals its value into v. Returns the
// record's last-updated timestamp.
func (s *Store) GetJSON(key string, v any) (time.Time, error) {
	rec, err := s.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	if err := json.Unmarshal(rec.Value, v); err != nil {
		return time.Time{}, fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return rec.UpdatedAt, nil
}

// Remove deletes the record under key. Removing an absent key is not
// an error.
func (s *Store) Remove(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.key(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("remove %q: %w", key, err)
		}
		return nil
	})
}

// RemoveAll deletes every key belonging to this user. Used at logout.
func (s *Store) RemoveAll() error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(s.prefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan user keys: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("remove %q: %w", k, err)
			}
		}
		return nil
	})
}
