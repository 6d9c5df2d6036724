// Package session issues and verifies signed session tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrRevoked indicates the token was logged out.
	ErrRevoked = errors.New("session revoked")
)

// CookieName is the cookie carrying the session token for browser clients.
const CookieName = "vinoclub_session"

// Allowlist tracks live token ids so logout can revoke a token before it expires.
type Allowlist interface {
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	Exists(ctx context.Context, tokenID string) (bool, error)
	Remove(ctx context.Context, tokenID string) error
}

// Claims are the registered JWT claims; Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is an issued session.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager signs HS256 tokens. A nil allowlist makes tokens valid until expiry.
type Manager struct {
	secret    []byte
	ttl       time.Duration
	allowlist Allowlist
	now       func() time.Time
}

// NewManager builds a Manager.
func NewManager(secret string, ttl time.Duration, allowlist Allowlist) *Manager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{
		secret:    []byte(secret),
		ttl:       ttl,
		allowlist: allowlist,
		now:       time.Now,
	}
}

// Issue creates a token for userID.
func (m *Manager) Issue(ctx context.Context, userID string) (Token, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	tokenID := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	if m.allowlist != nil {
		if err := m.allowlist.Add(ctx, tokenID, m.ttl); err != nil {
			return Token{}, fmt.Errorf("record session: %w", err)
		}
	}

	return Token{Value: signed, ExpiresAt: expires}, nil
}

// Verify returns the user id carried by a live token.
func (m *Manager) Verify(ctx context.Context, raw string) (string, error) {
	claims, err := m.parse(raw)
	if err != nil {
		return "", err
	}

	if m.allowlist != nil {
		ok, err := m.allowlist.Exists(ctx, claims.ID)
		if err != nil {
			return "", fmt.Errorf("check session: %w", err)
		}
		if !ok {
			return "", ErrRevoked
		}
	}

	return claims.Subject, nil
}

// Revoke drops the token from the allowlist. Invalid tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	if m.allowlist == nil {
		return nil
	}
	claims, err := m.parse(raw)
	if err != nil {
		return nil
	}
	if err := m.allowlist.Remove(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (m *Manager) parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
