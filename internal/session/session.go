// Package session resolves the owner scope from bearer tokens issued by the
// auth collaborator. Every store read and feed subscription is keyed by the
// owner id this package extracts.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrNoOwner      = errors.New("token carries no owner id")
)

type claims struct {
	jwt.RegisteredClaims
}

// Manager verifies HMAC-signed session tokens.
type Manager struct {
	secret []byte
}

func NewManager(secret string) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("empty session secret")
	}
	return &Manager{secret: []byte(secret)}, nil
}

// OwnerID verifies the token and returns its subject claim. Expired tokens
// and wrong signing methods both map to ErrInvalidToken so callers cannot
// distinguish why a token was refused.
func (m *Manager) OwnerID(tokenString string) (string, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(c.Subject) == "" {
		return "", ErrNoOwner
	}
	return c.Subject, nil
}

// Issue signs a token for the given owner. Used by local development and
// tests; production tokens come from the auth collaborator.
func (m *Manager) Issue(ownerID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	return token.SignedString(m.secret)
}
