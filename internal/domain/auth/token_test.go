package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("round-trip-secret", time.Hour)
	now := time.Now().Truncate(time.Second)

	signed, claims, err := codec.Sign(42, now)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	if claims.TokenID == "" {
		t.Fatal("expected a non-empty token ID")
	}

	got, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if got.UserID != 42 {
		t.Errorf("UserID = %d, expected 42", got.UserID)
	}
	if got.TokenID != claims.TokenID {
		t.Errorf("TokenID = %q, expected %q", got.TokenID, claims.TokenID)
	}
	if !got.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, expected %v", got.ExpiresAt, now.Add(time.Hour))
	}
}

func TestTokenCodec_UniqueTokenIDs(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	now := time.Now()

	_, first, err := codec.Sign(1, now)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	_, second, err := codec.Sign(1, now)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	if first.TokenID == second.TokenID {
		t.Error("two tokens for the same user share a token ID")
	}
}

func TestTokenCodec_ExpiredTokenStillVerifies(t *testing.T) {
	codec := NewTokenCodec("secret", time.Minute)
	past := time.Now().Add(-time.Hour)

	signed, _, err := codec.Sign(7, past)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}

	claims, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() should accept an expired token, got %v", err)
	}
	if !claims.Expired(time.Now()) {
		t.Error("claims should report as expired")
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	signer := NewTokenCodec("signing-secret", time.Hour)
	verifier := NewTokenCodec("different-secret", time.Hour)

	signed, _, err := signer.Sign(1, time.Now())
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}

	_, err = verifier.Verify(signed)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestTokenCodec_TamperedToken(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	signed, _, err := codec.Sign(1, time.Now())
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}

	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + ".eyJzdWIiOiI5OTkifQ." + parts[2]

	if _, err := codec.Verify(tampered); err == nil {
		t.Error("expected tampered token to be rejected")
	}
}

func TestTokenCodec_Garbage(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)

	_, err := codec.Verify("not-a-token")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestClaims_InRefreshWindow(t *testing.T) {
	now := time.Now()
	claims := &Claims{
		IssuedAt:  now.Add(-11 * time.Hour),
		ExpiresAt: now.Add(10 * time.Minute),
	}

	if !claims.InRefreshWindow(now, 15*time.Minute) {
		t.Error("token expiring in 10m should be inside a 15m refresh window")
	}
	if claims.InRefreshWindow(now, 5*time.Minute) {
		t.Error("token expiring in 10m should be outside a 5m refresh window")
	}

	expired := &Claims{ExpiresAt: now.Add(-time.Minute)}
	if expired.InRefreshWindow(now, 15*time.Minute) {
		t.Error("expired token is never refreshable")
	}
}
