package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/port"
)

const (
	defaultCachePrefix = "cache"
	scanBatchSize      = 100
)

// CacheService implements port.Cache on top of Redis with a per-instance key
// prefix. Two services constructed with different prefixes never collide,
// even for identical logical keys.
//
// Store-level failures never escape: reads degrade to misses, writes report
// false, and the failure is logged. The cache is a latency optimization over
// the authoritative store, never a correctness dependency.
type CacheService struct {
	client  *red.Client
	prefix  string
	logger  *zap.Logger
	metrics *CacheMetrics
}

// NewCacheService constructs a namespaced cache facade over the Redis client.
func NewCacheService(client *red.Client, prefix string, logger *zap.Logger) *CacheService {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = defaultCachePrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CacheService{client: client, prefix: trimmed, logger: logger}
}

// WithMetrics attaches hit/miss/error collectors to the service.
func (s *CacheService) WithMetrics(metrics *CacheMetrics) *CacheService {
	s.metrics = metrics
	return s
}

// Prefix returns the namespace prefix of this instance.
func (s *CacheService) Prefix() string {
	return s.prefix
}

func (s *CacheService) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Get returns the cached value for key. Values stored as JSON strings are
// decoded back to the original string; anything else is returned as the raw
// stored representation.
func (s *CacheService) Get(ctx context.Context, key string) (string, bool) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err != red.Nil {
			s.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
			s.metrics.IncError(s.prefix)
		}
		s.metrics.IncMiss(s.prefix)
		return "", false
	}

	s.metrics.IncHit(s.prefix)

	var decoded string
	if json.Unmarshal([]byte(raw), &decoded) == nil {
		return decoded, true
	}
	return raw, true
}

// GetJSON decodes the cached value into dest. A value that is absent, not
// valid JSON, or not shaped like dest is reported as a miss; the schema
// fails closed rather than half-populating dest.
func (s *CacheService) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err != red.Nil {
			s.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
			s.metrics.IncError(s.prefix)
		}
		s.metrics.IncMiss(s.prefix)
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn("cache entry did not match expected schema, treating as miss",
			zap.String("key", key), zap.Error(err))
		s.metrics.IncMiss(s.prefix)
		return false
	}

	s.metrics.IncHit(s.prefix)
	return true
}

// Set serializes value to JSON and stores it under key. Values that cannot
// be marshalled are stored via their string representation. A zero ttl
// stores without expiry. Returns false when the write did not land.
func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		payload = []byte(fmt.Sprint(value))
	}

	if err := s.client.Set(ctx, s.key(key), payload, ttl).Err(); err != nil {
		s.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return false
	}

	s.logger.Debug("cached key", zap.String("key", key), zap.Duration("ttl", ttl))
	return true
}

// Delete removes key, reporting whether an entry was actually removed.
func (s *CacheService) Delete(ctx context.Context, key string) bool {
	removed, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		s.logger.Error("cache delete failed", zap.String("key", key), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return false
	}
	return removed > 0
}

// Exists reports whether key is present.
func (s *CacheService) Exists(ctx context.Context, key string) bool {
	count, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		s.logger.Error("cache exists failed", zap.String("key", key), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return false
	}
	return count > 0
}

// ClearPattern deletes every key matching the namespaced glob pattern and
// returns the number of keys removed. The scan drains the cursor fully
// before deleting; a single SCAN round is not guaranteed to surface all
// matches.
func (s *CacheService) ClearPattern(ctx context.Context, pattern string) int {
	fullPattern := s.key(pattern)

	var keys []string
	iter := s.client.Scan(ctx, 0, fullPattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return 0
	}

	if len(keys) == 0 {
		return 0
	}

	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.logger.Error("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return 0
	}

	s.logger.Info("cleared cache pattern",
		zap.String("pattern", pattern), zap.Int64("deleted", deleted))
	return int(deleted)
}

// TTL returns the remaining lifetime of key. ok is false when the key is
// absent; port.NoExpiry is returned for keys stored without expiration.
func (s *CacheService) TTL(ctx context.Context, key string) (time.Duration, bool) {
	ttl, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		s.logger.Error("cache ttl failed", zap.String("key", key), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return 0, false
	}

	switch ttl {
	case time.Duration(-2):
		// Key does not exist.
		return 0, false
	case time.Duration(-1):
		return port.NoExpiry, true
	default:
		return ttl, true
	}
}

// Increment applies an atomic INCRBY, returning the new value.
func (s *CacheService) Increment(ctx context.Context, key string, amount int64) (int64, bool) {
	value, err := s.client.IncrBy(ctx, s.key(key), amount).Result()
	if err != nil {
		s.logger.Error("cache increment failed", zap.String("key", key), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return 0, false
	}
	return value, true
}

// Decrement applies an atomic DECRBY, returning the new value.
func (s *CacheService) Decrement(ctx context.Context, key string, amount int64) (int64, bool) {
	value, err := s.client.DecrBy(ctx, s.key(key), amount).Result()
	if err != nil {
		s.logger.Error("cache decrement failed", zap.String("key", key), zap.Error(err))
		s.metrics.IncError(s.prefix)
		return 0, false
	}
	return value, true
}

var _ port.Cache = (*CacheService)(nil)
