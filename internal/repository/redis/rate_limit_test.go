package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitRepository_Hit(t *testing.T) {
	client, _ := newTestRedis(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRateLimitRepository(client).WithClock(func() time.Time { return base })
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := repo.Hit(ctx, "10.0.0.1", time.Minute)
		if err != nil {
			t.Fatalf("Hit returned error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
	}
}

func TestRateLimitRepository_WindowRollover(t *testing.T) {
	client, _ := newTestRedis(t)
	base := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	repo := NewRateLimitRepository(client).WithClock(func() time.Time { return base })
	ctx := context.Background()

	if _, err := repo.Hit(ctx, "10.0.0.1", time.Minute); err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}
	if _, err := repo.Hit(ctx, "10.0.0.1", time.Minute); err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}

	// The next minute lands in a fresh bucket and the count restarts.
	repo.WithClock(func() time.Time { return base.Add(time.Minute) })
	count, err := repo.Hit(ctx, "10.0.0.1", time.Minute)
	if err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window to restart at 1, got %d", count)
	}
}

func TestRateLimitRepository_CounterCarriesTTL(t *testing.T) {
	client, server := newTestRedis(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRateLimitRepository(client).WithClock(func() time.Time { return base })

	if _, err := repo.Hit(context.Background(), "client-a", time.Minute); err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}

	keys := server.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected a single counter key, got %v", keys)
	}
	if remaining := server.TTL(keys[0]); remaining <= 0 || remaining > time.Minute {
		t.Fatalf("expected counter ttl within (0, 1m], got %v", remaining)
	}
}

func TestRateLimitRepository_IdentifiersAreIndependent(t *testing.T) {
	client, _ := newTestRedis(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRateLimitRepository(client).WithClock(func() time.Time { return base })
	ctx := context.Background()

	if _, err := repo.Hit(ctx, "10.0.0.1", time.Minute); err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}
	count, err := repo.Hit(ctx, "10.0.0.2", time.Minute)
	if err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected independent counter to start at 1, got %d", count)
	}
}
