// Package auth holds the HTTP-facing pieces of authentication: the session
// cookie and route gate, bearer-token extraction, and the token and password
// primitives used by the local account backend.
//
// LOCAL ID TOKENS:
// In local mode the portal acts as its own identity provider. It signs ID
// tokens with HS256 in the same shape the hosted provider uses:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"<uid>","email":"<email>","iss":"<issuer>","exp":...}
//
// Verification needs only the shared secret, no lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL matches the lifetime of hosted-provider ID tokens.
const DefaultTokenTTL = time.Hour

// TokenService signs and validates local ID tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret should be at least 32
// bytes of random data in production (openssl rand -hex 32).
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	if issuer == "" {
		return nil, errors.New("auth: token issuer must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// TokenClaims is the ID token payload. Subject carries the account UID.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs an ID token for the account with the configured lifetime.
func (s *TokenService) Generate(uid, email string) (string, error) {
	return s.GenerateWithDuration(uid, email, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to produce an already-expired token.
func (s *TokenService) GenerateWithDuration(uid, email string, d time.Duration) (string, error) {
	now := time.Now()

	c := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - signature made with our secret, algorithm pinned to HS256
//   - not expired, expiry required
//   - issuer matches
//
// Pinning the algorithm rejects "alg":"none" and key-confusion tokens.
func (s *TokenService) Validate(tokenStr string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&TokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return c, nil
}
