// Package auth provides JWT token issuing/validation, password hashing, and
// the GitHub OAuth provider — everything that turns a bearer credential into
// a user identity.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers or logs in (email+password), or completes the GitHub
//    OAuth dance
// 2. Server issues a signed JWT whose "sub" claim is the internal user ID
// 3. The client presents the token on every mutation — either as an
//    Authorization: Bearer header or the HttpOnly "token" cookie
// 4. Middleware validates the signature, puts the userID in the request
//    context, and the services authorize strictly from that identity
//
// The token is the ONLY source of identity for mutations. No handler or
// service ever trusts a client-supplied email or author field.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer identifies tokens minted by this service. Validation rejects
// tokens from any other issuer, even if signed with the same secret.
const tokenIssuer = "voyage"

// tokenLifetime is how long an access token stays valid. Travellers write
// long posts; a 15-minute token would log them out mid-draft, so we issue
// day-long tokens and accept the larger revocation window.
const tokenLifetime = 24 * time.Hour

// TokenService signs and verifies the JWT access tokens.
// It holds the HMAC secret used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. jwt.RegisteredClaims covers everything we need:
// Subject carries the internal user ID, plus the standard expiry fields.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new access token for the given userID.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs and
// verifies. Fine for a single-server deployment; switch to RS256 if tokens
// ever need to be verified by other services.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, tokenLifetime)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests
// to mint already-expired tokens without sleeping.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string, returning the userID from the
// "sub" claim.
//
// The jwt library checks signature, expiry, and issuer. Passing
// jwt.WithValidMethods pins the algorithm to HS256 — without it, an
// attacker-supplied "alg" header could downgrade verification (the classic
// algorithm confusion attack).
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	userID := c.Subject
	if userID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return userID, nil
}
