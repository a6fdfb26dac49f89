package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testSecret = "test-secret-with-enough-bytes"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, accessTTL, refreshTTL time.Duration) (*Manager, *InMemorySessionStore, *fakeClock) {
	t.Helper()
	signer, err := NewTokenSigner(testSecret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	store := NewInMemorySessionStore()
	clock := &fakeClock{now: time.Now().UTC()}
	manager := NewManager(accessTTL, refreshTTL, signer, store)
	manager.now = clock.Now
	return manager, store, clock
}

func TestManagerIssueAndRefresh(t *testing.T) {
	manager, store, _ := newTestManager(t, time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "3f0c2a8e-0000-4000-8000-000000000001")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if !tokens.RefreshExpiresAt.After(tokens.AccessExpiresAt) {
		t.Fatal("refresh token should outlive the access token")
	}

	principal, err := manager.Authenticate(tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.UserID != "3f0c2a8e-0000-4000-8000-000000000001" {
		t.Fatalf("unexpected principal %+v", principal)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("old token should have been removed")
	}
	if !store.Has(refreshed.RefreshToken) {
		t.Fatal("new token should be persisted")
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _, _ := newTestManager(t, time.Minute, time.Hour)
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty principal id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, store, clock := newTestManager(t, time.Minute, time.Hour)

	if _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.Advance(2 * time.Hour)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected refresh expired got %v", err)
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expired session should be dropped")
	}

	tokens, err = manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	manager.Revoke(context.Background(), tokens.RefreshToken)
	manager.Revoke(context.Background(), tokens.RefreshToken)
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerRefreshTokenIsSingleUse(t *testing.T) {
	manager, _, _ := newTestManager(t, time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const racers = 8
	var wins int32
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful refresh, got %d", wins)
	}
}

func TestManagerAuthenticateRejectsGarbage(t *testing.T) {
	manager, _, _ := newTestManager(t, time.Minute, time.Hour)
	if _, err := manager.Authenticate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}
