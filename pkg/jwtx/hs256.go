package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("jwtx: invalid token")
	ErrExpiredToken = errors.New("jwtx: token expired")
)

// Codec signs and verifies HS256 access tokens with a shared secret.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec builds a Codec. The secret must be at least 32 bytes; anything
// shorter makes brute-forcing the HMAC feasible.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwtx: signing secret must be at least 32 bytes")
	}
	return &Codec{secret: secret, issuer: issuer}, nil
}

// NewAccessClaims builds access claims stamped with this codec's issuer.
func (c *Codec) NewAccessClaims(subject, role string, verified bool, ttl time.Duration, now time.Time) Claims {
	return NewAccessClaims(subject, role, verified, ttl, c.issuer, now)
}

// Sign produces a compact JWS for the given claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: signing failed: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a compact JWS, checking signature, expiry and
// issuer. Returns the embedded claims on success.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return c.secret, nil
		},
		jwt.WithIssuer(c.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// RemainingValidity reports how long until the claims expire, clamped at zero.
func (cl Claims) RemainingValidity(now time.Time) time.Duration {
	if cl.ExpiresAt == nil {
		return 0
	}
	d := cl.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
