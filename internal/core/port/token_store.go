package port

import (
	"context"
	"time"
)

// RefreshTokenStore persists the opaque refresh identifier to user mapping.
// The mapping only ever lives in the key-value store, so failures here
// propagate: a refresh that cannot reach the store must fail the request.
type RefreshTokenStore interface {
	// Save stores the identifier with the refresh lifetime as TTL.
	Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	// Lookup resolves the identifier, returning repository.ErrNotFound when
	// the mapping is absent or expired.
	Lookup(ctx context.Context, tokenID string) (int64, error)
	// Delete removes the identifier. Rotation uses this best-effort.
	Delete(ctx context.Context, tokenID string) error
}

// TokenBlacklist records revoked access token identifiers until their
// natural expiry, after which entries lapse on their own.
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// RateLimitStore counts requests in fixed windows keyed by identifier.
type RateLimitStore interface {
	// Hit increments the counter for the current window and returns the new
	// count within that window.
	Hit(ctx context.Context, identifier string, window time.Duration) (int64, error)
}
