package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates an access token failed signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid access token")

const tokenIssuer = "clipvault"

// TokenSigner issues and verifies HS256 access tokens whose subject is the
// principal id. Tokens carry no authorization claims; admin status is always
// read from the profile store.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner constructs a signer using the shared secret.
func NewTokenSigner(secret string) (*TokenSigner, error) {
	if len(strings.TrimSpace(secret)) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	return &TokenSigner{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a signed access token for userID that expires at expiresAt.
func (s *TokenSigner) Sign(userID string, expiresAt time.Time) (string, error) {
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns the principal it names.
func (s *TokenSigner) Verify(token string) (Principal, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Principal{UserID: claims.Subject}, nil
}
