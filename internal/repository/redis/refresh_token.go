package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/sashasoft90/c3po/internal/core/port"
	"github.com/sashasoft90/c3po/internal/repository"
)

// Refresh token mappings live under raw top-level keys, outside any cache
// namespace prefix, so external tooling inspecting the store sees
// refresh_token:{id} directly.
const refreshTokenKeyPrefix = "refresh_token"

// RefreshTokenRepository persists opaque refresh identifiers mapped to user
// ids. Unlike the cache layer, errors propagate: this data has no
// authoritative fallback, it only ever lives in the store.
type RefreshTokenRepository struct {
	client *red.Client
}

// NewRefreshTokenRepository wires Redis storage for refresh token mappings.
func NewRefreshTokenRepository(client *red.Client) *RefreshTokenRepository {
	return &RefreshTokenRepository{client: client}
}

// Save stores the identifier to user mapping with the refresh lifetime as TTL.
func (r *RefreshTokenRepository) Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	key := r.key(tokenID)
	if key == "" {
		return fmt.Errorf("token id is required")
	}
	if userID <= 0 {
		return fmt.Errorf("user id must be positive")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := r.client.Set(ctx, key, strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis set refresh token: %w", err)
	}
	return nil
}

// Lookup resolves the identifier to a user id, returning ErrNotFound when
// the mapping is absent or expired.
func (r *RefreshTokenRepository) Lookup(ctx context.Context, tokenID string) (int64, error) {
	key := r.key(tokenID)
	if key == "" {
		return 0, fmt.Errorf("token id is required")
	}

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("redis get refresh token: %w", err)
	}

	userID, parseErr := strconv.ParseInt(value, 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("parse refresh token mapping: %w", parseErr)
	}
	return userID, nil
}

// Delete removes the identifier. Deleting an already-absent mapping is not
// an error; rotation deletes best-effort.
func (r *RefreshTokenRepository) Delete(ctx context.Context, tokenID string) error {
	key := r.key(tokenID)
	if key == "" {
		return fmt.Errorf("token id is required")
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) key(tokenID string) string {
	trimmed := strings.TrimSpace(tokenID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", refreshTokenKeyPrefix, trimmed)
}

var _ port.RefreshTokenStore = (*RefreshTokenRepository)(nil)
