package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndResolve(t *testing.T) {
	m, err := NewManager("test-secret")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Issue("owner-1", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	owner, err := m.OwnerID(token)
	if err != nil {
		t.Fatalf("OwnerID: %v", err)
	}
	if owner != "owner-1" {
		t.Fatalf("owner = %q, want owner-1", owner)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m, _ := NewManager("test-secret")
	token, err := m.Issue("owner-1", -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.OwnerID(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	issuer, _ := NewManager("secret-a")
	verifier, _ := NewManager("secret-b")

	token, _ := issuer.Issue("owner-1", time.Minute)
	if _, err := verifier.OwnerID(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	m, _ := NewManager("test-secret")
	if _, err := m.OwnerID("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestMissingSubjectRejected(t *testing.T) {
	m, _ := NewManager("test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.OwnerID(signed); !errors.Is(err, ErrNoOwner) {
		t.Fatalf("err = %v, want ErrNoOwner", err)
	}
}

func TestEmptySecretRefused(t *testing.T) {
	if _, err := NewManager("  "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
