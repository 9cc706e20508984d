package domain

import "time"

// AccountStatus gates login: anything but Active blocks credential use.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

// Account roles. Free-form strings at the storage layer; these are the
// values the registration surface accepts.
const (
	RoleCandidate = "candidate"
	RoleAgent     = "agent"
	RoleAdmin     = "admin"
)

// Account is the durable identity record. At least one of Email/Phone is
// set; each is globally unique when present (enforced by partial unique
// indexes, which are the final arbiter under concurrent registration).
type Account struct {
	ID            string
	DisplayName   string
	Email         string // empty for phone-only accounts
	Phone         string // E.164; empty for email-only accounts
	PasswordHash  string // empty for phone-only accounts without a password
	Role          string
	Status        AccountStatus
	EmailVerified bool
	PhoneVerified bool

	// Password-reset state, transient: only the token fingerprint is
	// stored, and both fields are cleared after a successful reset.
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanLogin reports whether the account status permits authentication.
func (a Account) CanLogin() bool {
	return a.Status == StatusActive
}
