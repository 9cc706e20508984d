package store

import (
	"context"
	"errors"
	"time"

	"github.com/nexhire/nexhire/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable.
type Store interface {
	Leads() Leads
	OTPCodes() OTPCodes
	Accounts() Accounts
	RefreshTokens() RefreshTokens
	RevokedAccessTokens() RevokedAccessTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn
	// returns an error and committing otherwise. This is the recommended
	// way to run multi-step operations that must be atomic (OTP
	// consumption + account creation, refresh rotation).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Leads interface {
	// UpsertLead inserts a lead keyed by its contact identifier, or
	// overwrites the pending lead that already owns that identifier
	// (preserving its id and created_at). Returns the stored lead.
	UpsertLead(ctx context.Context, l domain.Lead) (domain.Lead, error)

	// GetLeadByID returns a lead by id.
	GetLeadByID(ctx context.Context, id string) (domain.Lead, error)

	// GetLeadByIdentifier resolves a lead by canonical email or phone.
	GetLeadByIdentifier(ctx context.Context, identifier string) (domain.Lead, error)

	// MarkLeadVerified flips verified plus the channel-specific flag.
	MarkLeadVerified(ctx context.Context, id string, ch domain.Channel) error
}

type OTPCodes interface {
	// ReplaceOTPCode deletes any record for the (identifier, channel)
	// pair and inserts the new one. At most one active code per pair.
	ReplaceOTPCode(ctx context.Context, c domain.OTPCode) error

	// GetOTPCode returns the active record for an (identifier, channel) pair.
	GetOTPCode(ctx context.Context, identifier string, ch domain.Channel) (domain.OTPCode, error)

	// IncrementOTPAttempts bumps the attempt counter and returns the new count.
	IncrementOTPAttempts(ctx context.Context, id string) (int, error)

	// DeleteOTPCode removes a record by id. Consume-once semantics are
	// built on this: verification, expiry and attempt-cap all delete.
	DeleteOTPCode(ctx context.Context, id string) error

	// DeleteExpiredOTPCodes is housekeeping.
	DeleteExpiredOTPCodes(ctx context.Context) error
}

type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (domain.Account, error)

	// CreateAccount inserts a new account. Returns ErrAlreadyExists when a
	// unique index on email or phone rejects the row; this is the final
	// arbiter under concurrent registration.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error

	// UpdateAccountStatus moves the account between active/inactive/suspended.
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus) error

	// UpdateLastLogin records a successful authentication.
	UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error

	// SetResetToken stores the fingerprint of a password-reset token.
	SetResetToken(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken wipes the reset-token fields after use.
	ClearResetToken(ctx context.Context, accountID string) error

	// GetAccountByResetTokenHash resolves an account by reset-token fingerprint.
	GetAccountByResetTokenHash(ctx context.Context, hash string) (domain.Account, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by token fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked, sets updated_at. Returns
	// ErrNotFound when the token is unknown or already revoked, so one
	// presentation wins under concurrent rotation.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllAccountRefreshTokens is bulk revocation (password reset/change,
	// logout-everywhere).
	RevokeAllAccountRefreshTokens(ctx context.Context, accountID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type RevokedAccessTokens interface {
	// RevokeAccessToken deny-lists an access token jti until its natural
	// expiry. Idempotent.
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error

	// IsAccessTokenRevoked reports whether a jti is on the deny-list.
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpiredRevocations keeps the deny-list bounded.
	DeleteExpiredRevocations(ctx context.Context) error
}
