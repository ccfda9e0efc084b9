package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/sashasoft90/c3po/internal/core/port"
)

const blacklistKeyPrefix = "token:blacklist"

// BlacklistRepository records revoked access token identifiers. Entries
// carry the remaining lifetime of the revoked token as TTL: once the token
// would have expired anyway, the entry lapses and no longer needs checking.
type BlacklistRepository struct {
	client *red.Client
}

// NewBlacklistRepository wires Redis storage for the token blacklist.
func NewBlacklistRepository(client *red.Client) *BlacklistRepository {
	return &BlacklistRepository{client: client}
}

// Add marks the jti as revoked for the remaining token lifetime.
func (r *BlacklistRepository) Add(ctx context.Context, jti string, ttl time.Duration) error {
	key := r.key(jti)
	if key == "" {
		return fmt.Errorf("jti is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set blacklist entry: %w", err)
	}
	return nil
}

// Contains reports whether the jti has been revoked.
func (r *BlacklistRepository) Contains(ctx context.Context, jti string) (bool, error) {
	key := r.key(jti)
	if key == "" {
		return false, fmt.Errorf("jti is required")
	}

	if err := r.client.Get(ctx, key).Err(); err != nil {
		if errors.Is(err, red.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get blacklist entry: %w", err)
	}
	return true, nil
}

func (r *BlacklistRepository) key(jti string) string {
	trimmed := strings.TrimSpace(jti)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", blacklistKeyPrefix, trimmed)
}

var _ port.TokenBlacklist = (*BlacklistRepository)(nil)
