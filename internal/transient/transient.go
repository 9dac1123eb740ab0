// Package transient provides short-lived key/value records with an expiry,
// backed by Redis. Values are stored as JSON under a common key prefix.
package transient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces transient keys away from sessions.
const keyPrefix = "transient:"

// ErrNotFound is returned by Update when the record no longer exists.
var ErrNotFound = errors.New("transient not found")

// Store reads and writes transients in Redis.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a transient store on the given Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Get decodes the record at key into dest. It reports false when the record
// is missing or expired.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading transient %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decoding transient %s: %w", key, err)
	}
	return true, nil
}

// Set stores value at key for ttl, replacing any existing record and its
// expiry.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding transient %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing transient %s: %w", key, err)
	}
	return nil
}

// Update overwrites an existing record while keeping its remaining TTL, so
// writes never extend a record's lifetime. Returns ErrNotFound if the record
// expired in the meantime.
func (s *Store) Update(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding transient %s: %w", key, err)
	}
	err = s.rdb.SetArgs(ctx, keyPrefix+key, data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating transient %s: %w", key, err)
	}
	return nil
}

// Delete removes the record at key. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("deleting transient %s: %w", key, err)
	}
	return nil
}

// Count returns the integer counter at key, or 0 when it is absent.
func (s *Store) Count(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Get(ctx, keyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading counter %s: %w", key, err)
	}
	return n, nil
}

// Increment adds one to the counter at key and resets its expiry to ttl.
// Returns the new value.
func (s *Store) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, keyPrefix+key)
		pipe.Expire(ctx, keyPrefix+key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing counter %s: %w", key, err)
	}
	return incr.Val(), nil
}
