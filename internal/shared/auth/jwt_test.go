package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mustKeys(t *testing.T, secret string) *Keys {
	t.Helper()
	k, err := NewKeys(secret, "production")
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	return k
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	k := mustKeys(t, "unit-secret")
	token, err := k.Sign(Claims{
		Email:            "manager@oakhouse.example",
		TenantID:         12,
		Role:             "manager",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := k.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.TenantID != 12 || claims.Role != "manager" || claims.Issuer != Issuer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredForeignAndUnissuedTokens(t *testing.T) {
	k := mustKeys(t, "unit-secret")

	expired, err := k.Sign(Claims{
		TenantID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	foreign, err := mustKeys(t, "other-secret").Sign(Claims{TenantID: 1, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-2"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	otherIssuer, err := k.Sign(Claims{TenantID: 1, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-3", Issuer: "someone-else"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID:         1,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-4", Issuer: Issuer},
	}).SignedString([]byte("unit-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	for name, token := range map[string]string{
		"expired":      expired,
		"foreign":      foreign,
		"other issuer": otherIssuer,
		"no expiry":    noExpiry,
		"garbage":      "not.a.token",
	} {
		if _, err := k.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestSignRequiresTenant(t *testing.T) {
	k := mustKeys(t, "unit-secret")
	if _, err := k.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}); err == nil {
		t.Fatalf("expected error for token without tenant")
	}
}

func TestNewKeysSecretPolicy(t *testing.T) {
	if _, err := NewKeys("", "production"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	k, err := NewKeys(" ", "dev")
	if err != nil {
		t.Fatalf("dev keys: %v", err)
	}
	token, err := k.Sign(Claims{TenantID: 2, RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := k.Verify(token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
