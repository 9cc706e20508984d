package domain

import "time"

// UTM carries acquisition metadata captured with a registration attempt.
// Empty strings mean the parameter was not provided.
type UTM struct {
	Source   string
	Medium   string
	Campaign string
}

// Lead is a not-yet-verified registration attempt, keyed by its contact
// identifier. At most one Lead exists per identifier: re-registration before
// verification overwrites the pending record. Leads are never deleted; they
// feed funnel analytics and become inert once an Account owns the identifier.
type Lead struct {
	ID            string
	DisplayName   string
	Email         string // empty when the lead registered by phone
	Phone         string // E.164; empty when the lead registered by email
	Role          string
	Method        Channel // verification channel chosen at capture time
	UTM           UTM
	EmailVerified bool
	PhoneVerified bool
	Verified      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identifier returns the contact identifier that keys this lead.
func (l Lead) Identifier() string {
	if l.Email != "" {
		return l.Email
	}
	return l.Phone
}

// Contact reconstructs the typed contact union for this lead.
func (l Lead) Contact() Contact {
	if l.Email != "" {
		return Contact{Kind: ContactEmail, Value: l.Email}
	}
	return Contact{Kind: ContactPhone, Value: l.Phone}
}
