// Package auth verifies the bearer tokens issued to care home staff by the
// identity provider. Tokens are HS256 and must carry a tenant.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on tokens minted by Sign and required by Verify.
const Issuer = "careaudit"

const (
	defaultTTL    = 24 * time.Hour
	defaultLeeway = 30 * time.Second
	devSecret     = "dev-secret"
)

var (
	ErrMissingSecret = errors.New("JWT_SECRET is required outside dev")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims is the identity carried by a token. Subject is the user ID.
type Claims struct {
	TenantID int64  `json:"tenant_id"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Keys signs and verifies tokens with one shared secret.
type Keys struct {
	secret []byte
	now    func() time.Time
}

// NewKeys builds Keys for secret. Dev-like envs fall back to a fixed
// secret when none is set; every other env must provide one.
func NewKeys(secret, env string) (*Keys, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		switch strings.ToLower(strings.TrimSpace(env)) {
		case "", "dev", "local", "test":
			secret = devSecret
		default:
			return nil, ErrMissingSecret
		}
	}
	return &Keys{secret: []byte(secret), now: time.Now}, nil
}

// Sign mints a token for claims, defaulting issuer, issue time and a 24h expiry.
func (k *Keys) Sign(claims Claims) (string, error) {
	if claims.Subject == "" || claims.TenantID <= 0 {
		return "", errors.New("sign token: subject and tenant_id are required")
	}
	now := k.now().UTC()
	if claims.Issuer == "" {
		claims.Issuer = Issuer
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(defaultTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
}

// Verify parses raw and returns its claims. Any failure is ErrInvalidToken.
func (k *Keys) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return k.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithTimeFunc(k.now),
	)
	if err != nil || claims.Subject == "" || claims.TenantID <= 0 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
