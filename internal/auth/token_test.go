package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, expiresAt, err := issuer.Issue("user-42", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if until := time.Until(expiresAt); until < 23*time.Hour {
		t.Fatalf("expected ~24h expiry, got %v", until)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != "user" {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	current := time.Now().UTC()
	issuer, err := NewTokenIssuer("test-secret",
		WithTTL(time.Minute),
		WithClock(func() time.Time { return current }),
	)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, _, err := issuer.Issue("user-42", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, _, err := issuer.Issue("user-42", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := issuer.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	mint, err := NewTokenIssuer("secret-a")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	check, err := NewTokenIssuer("secret-b")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, _, err := mint.Issue("user-42", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := check.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	if _, err := issuer.Verify("  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("   "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
