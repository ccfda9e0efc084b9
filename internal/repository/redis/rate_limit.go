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

const rateLimitKeyPrefix = "rate_limit"

// RateLimitRepository counts requests in fixed windows using atomic INCR.
// The increment and the expiry are pipelined into a single round trip, so a
// freshly created counter always carries a TTL.
type RateLimitRepository struct {
	client *red.Client
	now    func() time.Time
}

// NewRateLimitRepository constructs a repository using the provided Redis client.
func NewRateLimitRepository(client *red.Client) *RateLimitRepository {
	return &RateLimitRepository{client: client, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (r *RateLimitRepository) WithClock(clock func() time.Time) *RateLimitRepository {
	if clock != nil {
		r.now = clock
	}
	return r
}

// Hit increments the counter for the current window and returns the new
// count. The key embeds the window bucket, so counts reset naturally at
// window boundaries even before the TTL fires.
func (r *RateLimitRepository) Hit(ctx context.Context, identifier string, window time.Duration) (int64, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return 0, errors.New("identifier is required")
	}
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	bucket := r.now().Unix() / int64(window.Seconds())
	key := fmt.Sprintf("%s:%s:%d", rateLimitKeyPrefix, identifier, bucket)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis rate limit pipeline: %w", err)
	}

	return incr.Val(), nil
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
