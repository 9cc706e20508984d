package domain

import (
	"encoding/json"
	"time"
)

// OTPCode is a single-use verification code bound to one (identifier,
// channel) pair. It is the sole custodian of the pending account data: the
// metadata blob carries everything needed to create the Account the moment
// the code is confirmed, and is destroyed with the record.
type OTPCode struct {
	ID               string
	Identifier       string // canonical email or E.164 phone
	Channel          Channel
	Code             string // 6 digits
	PendingTokenHash string // fingerprint of the opaque token returned by register/start
	Attempts         int
	Metadata         []byte // JSON-encoded PendingRegistration
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// Expired reports whether the code is past its expiry at the given time.
func (o OTPCode) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// PendingRegistration is the account data captured at issuance time and
// frozen into the OTP record. The password is hashed before it gets here;
// nothing downstream re-hashes or re-validates it.
type PendingRegistration struct {
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash,omitempty"`
	UTMSource    string `json:"utm_source,omitempty"`
	UTMMedium    string `json:"utm_medium,omitempty"`
	UTMCampaign  string `json:"utm_campaign,omitempty"`
}

// Encode serializes the pending registration for storage on an OTP record.
func (p PendingRegistration) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePendingRegistration parses the metadata blob of a consumed OTP record.
func DecodePendingRegistration(raw []byte) (PendingRegistration, error) {
	var p PendingRegistration
	err := json.Unmarshal(raw, &p)
	return p, err
}
