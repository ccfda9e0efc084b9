package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenManagerIssueAndParse(t *testing.T) {
	manager, err := NewTokenManager("unit-test-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, jti, err := manager.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatalf("expected non-empty token and jti")
	}

	claims, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.ID != jti {
		t.Fatalf("expected jti %s, got %s", jti, claims.ID)
	}

	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID returned error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user id 42, got %d", userID)
	}
}

func TestTokenManagerRejectsExpiredToken(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	manager, err := NewTokenManager("unit-test-secret", 10*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	manager.WithClock(func() time.Time { return current })

	token, _, err := manager.Issue(7)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	current = base.Add(9 * time.Minute)
	if _, err := manager.Parse(token); err != nil {
		t.Fatalf("expected token still valid before expiry, got %v", err)
	}

	current = base.Add(11 * time.Minute)
	if _, err := manager.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenManagerRejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenManager("issuer-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	verifier, err := NewTokenManager("other-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, _, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := verifier.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManagerRejectsGarbage(t *testing.T) {
	manager, err := NewTokenManager("unit-test-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	if _, err := manager.Parse("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAccessTokenClaimsRemaining(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager, err := NewTokenManager("unit-test-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	manager.WithClock(func() time.Time { return base })

	token, _, err := manager.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if remaining := claims.Remaining(base.Add(10 * time.Minute)); remaining != 20*time.Minute {
		t.Fatalf("expected 20m remaining, got %s", remaining)
	}
	if remaining := claims.Remaining(base.Add(time.Hour)); remaining != 0 {
		t.Fatalf("expected zero remaining after expiry, got %s", remaining)
	}
}
