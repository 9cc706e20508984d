package domain

import "time"

// TokenPair is what authentication endpoints return: a short-lived JWT
// access token and an opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until access expiry
}

// RefreshToken models a stored refresh-token record. Only the SHA-256
// fingerprint of the opaque value is persisted.
type RefreshToken struct {
	ID         string
	AccountID  string
	TokenHash  string
	ClientInfo string // user agent / device description supplied at issuance
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
