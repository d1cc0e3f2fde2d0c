package kv

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backing store is unreachable. It is the only
// error class this contract surfaces: missing keys are reported through ok
// flags, never as errors.
var ErrUnavailable = errors.New("key-value store unavailable")

// Store is the minimal key-value contract the throttle needs: integer values,
// create-if-absent, atomic increment, and store-enforced TTL.
//
// Increment must be a single atomic operation on the store side. Add is
// best-effort conditional-create; Add and Increment are NOT guaranteed to
// compose transactionally.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (int64, bool, error)
	// Add creates the key only if absent, returning whether it was created.
	Add(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error)
	// Put unconditionally writes the key with the given TTL.
	Put(ctx context.Context, key string, value int64, ttl time.Duration) error
	// Increment atomically increments the key and returns the new value.
	// Incrementing a missing key creates it at 1 with no TTL.
	Increment(ctx context.Context, key string) (int64, error)
	// Forget removes the key; removing a missing key is not an error.
	Forget(ctx context.Context, key string) error
	// Has reports whether the key exists and has not expired.
	Has(ctx context.Context, key string) (bool, error)
}
