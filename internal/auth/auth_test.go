package auth

import (
	"errors"
	"testing"
	"time"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("topsecret")
	token := v.Issue("candidate-1", time.Now().Add(time.Hour))

	userID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "candidate-1" {
		t.Fatalf("Verify() userID = %q, want %q", userID, "candidate-1")
	}
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("topsecret")
	token := v.Issue("candidate-1", time.Now().Add(-time.Minute))

	if _, err := v.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrExpiredToken)
	}
}

func TestVerifierRejectsTamperedSignature(t *testing.T) {
	v := NewVerifier("topsecret")
	token := v.Issue("candidate-1", time.Now().Add(time.Hour))
	tampered := token[:len(token)-1] + "0"

	if _, err := v.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestVerifierRejectsMalformedToken(t *testing.T) {
	v := NewVerifier("topsecret")
	if _, err := v.Verify("not-a-real-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestVerifierRejectsTokenSignedWithDifferentSecret(t *testing.T) {
	v1 := NewVerifier("secret-one")
	v2 := NewVerifier("secret-two")
	token := v1.Issue("candidate-1", time.Now().Add(time.Hour))

	if _, err := v2.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestAllowAnyVerifierRejectsEmptyToken(t *testing.T) {
	v := NewAllowAnyVerifier()
	if _, err := v.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestAllowAnyVerifierAcceptsAnyNonEmptyToken(t *testing.T) {
	v := NewAllowAnyVerifier()
	userID, err := v.Verify("whoever")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "whoever" {
		t.Fatalf("Verify() userID = %q, want %q", userID, "whoever")
	}
}
