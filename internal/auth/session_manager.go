package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the refresh token is unknown, revoked or already rotated.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token outlived its TTL.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

const refreshTokenBytes = 32

// SessionStore persists refresh sessions. Delete must report
// ErrSessionNotFound when the token is absent; Refresh relies on that to
// make each refresh token single-use under concurrent callers.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, refreshToken string) (Session, error)
	Delete(ctx context.Context, refreshToken string) error
}

// Session is one outstanding refresh token.
type Session struct {
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Manager issues short-lived access tokens for the principal and long-lived
// refresh tokens that rotate on every use.
type Manager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	signer     *TokenSigner
	store      SessionStore
	now        func() time.Time
}

// NewManager wires a Manager. Both signer and store are required.
func NewManager(accessTTL, refreshTTL time.Duration, signer *TokenSigner, store SessionStore) *Manager {
	if signer == nil || store == nil {
		panic("auth: NewManager requires a signer and a session store")
	}
	return &Manager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		signer:     signer,
		store:      store,
		now:        time.Now,
	}
}

// Issue starts a session for principalID.
func (m *Manager) Issue(ctx context.Context, principalID string) (models.SessionTokens, error) {
	if principalID == "" {
		return models.SessionTokens{}, errors.New("auth: principal id is required")
	}

	now := m.now().UTC()
	tokens := models.SessionTokens{
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	var err error
	if tokens.AccessToken, err = m.signer.Sign(principalID, tokens.AccessExpiresAt); err != nil {
		return models.SessionTokens{}, err
	}
	if tokens.RefreshToken, err = newRefreshToken(); err != nil {
		return models.SessionTokens{}, err
	}

	session := Session{RefreshToken: tokens.RefreshToken, UserID: principalID, ExpiresAt: tokens.RefreshExpiresAt}
	if err := m.store.Save(ctx, session); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save session: %w", err)
	}
	return tokens, nil
}

// Refresh consumes refreshToken and issues a fresh pair. Deleting the old
// session is the claim: of two concurrent refreshes with the same token
// only the one whose delete succeeds gets new tokens.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}
	if m.now().UTC().After(session.ExpiresAt) {
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	return m.Issue(ctx, session.UserID)
}

// Revoke ends the session held by refreshToken. Unknown tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := m.store.Delete(ctx, refreshToken); err != nil && !errors.Is(err, ErrSessionNotFound) {
		logging.FromContext(ctx).Warn("revoke session", slog.Any("error", err))
	}
}

// Authenticate resolves a bearer access token to its principal.
func (m *Manager) Authenticate(accessToken string) (Principal, error) {
	return m.signer.Verify(accessToken)
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("draw refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
