package port

import (
	"context"
	"time"
)

// Cache exposes the namespaced cache operations used across the service.
//
// Read and write operations never fail on store-availability problems: a
// broken cache degrades to misses and refused writes, it does not break the
// request. Callers that need a hard failure signal use the token stores
// instead.
type Cache interface {
	// Get returns the raw cached string and whether the key was present.
	Get(ctx context.Context, key string) (string, bool)
	// GetJSON decodes the cached value into dest and reports whether a
	// usable entry was found. Values that do not decode into dest are
	// treated as misses.
	GetJSON(ctx context.Context, key string, dest any) bool
	// Set serializes value and stores it under the namespaced key. A zero
	// ttl stores without expiry. Returns false when the write did not land.
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	// Delete removes the key, reporting whether an entry was actually removed.
	Delete(ctx context.Context, key string) bool
	Exists(ctx context.Context, key string) bool
	// ClearPattern deletes every key matching the namespaced glob pattern
	// and returns the number of keys removed.
	ClearPattern(ctx context.Context, pattern string) int
	// TTL returns the remaining lifetime of the key. NoExpiry (-1) means the
	// key exists without expiry. ok is false when the key is absent.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool)
	// Increment and Decrement apply atomic counter deltas, returning the new
	// value. ok is false when the operation did not reach the store.
	Increment(ctx context.Context, key string, amount int64) (value int64, ok bool)
	Decrement(ctx context.Context, key string, amount int64) (value int64, ok bool)
}

// NoExpiry is the TTL reported for keys stored without an expiration.
const NoExpiry = time.Duration(-1)
