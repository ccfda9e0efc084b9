package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashasoft90/c3po/internal/repository"
)

func TestRefreshTokenRepository_SaveAndLookup(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRefreshTokenRepository(client)
	ctx := context.Background()

	ttl := 7 * 24 * time.Hour
	if err := repo.Save(ctx, "token-abc", 42, ttl); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	userID, err := repo.Lookup(ctx, "token-abc")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}

	// The mapping lives under a raw top-level key, not a cache namespace.
	if !server.Exists("refresh_token:token-abc") {
		t.Fatalf("expected raw refresh_token key in store")
	}

	remaining := server.TTL("refresh_token:token-abc")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestRefreshTokenRepository_LookupMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRefreshTokenRepository(client)

	if _, err := repo.Lookup(context.Background(), "never-issued"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTokenRepository_ExpiredMapping(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRefreshTokenRepository(client)
	ctx := context.Background()

	if err := repo.Save(ctx, "short-lived", 7, time.Minute); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := repo.Lookup(ctx, "short-lived"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected expired mapping to report ErrNotFound, got %v", err)
	}
}

func TestRefreshTokenRepository_Delete(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRefreshTokenRepository(client)
	ctx := context.Background()

	if err := repo.Save(ctx, "rotated", 9, time.Hour); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := repo.Delete(ctx, "rotated"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := repo.Lookup(ctx, "rotated"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Best-effort rotation tolerates deleting an absent mapping.
	if err := repo.Delete(ctx, "rotated"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
}
