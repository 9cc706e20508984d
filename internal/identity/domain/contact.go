package domain

import (
	"errors"
	"regexp"
	"strings"
)

// Channel is the out-of-band verification transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ContactKind discriminates the Contact union.
type ContactKind string

const (
	ContactEmail ContactKind = "email"
	ContactPhone ContactKind = "phone"
)

var ErrInvalidContact = errors.New("domain: invalid contact identifier")

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
)

// Contact is the tagged union of the two identifier forms this system
// accepts. It is decided once at the request boundary and threaded through
// typed; nothing downstream re-sniffs the raw string.
type Contact struct {
	Kind  ContactKind
	Value string // canonical form: lowercased email, or E.164 phone
}

// ParseContact classifies a raw identifier as email or E.164 phone and
// canonicalizes it. Anything else is rejected.
func ParseContact(raw string) (Contact, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Contact{}, ErrInvalidContact
	}

	if strings.Contains(s, "@") {
		s = strings.ToLower(s)
		if !emailPattern.MatchString(s) {
			return Contact{}, ErrInvalidContact
		}
		return Contact{Kind: ContactEmail, Value: s}, nil
	}

	s = strings.ReplaceAll(s, " ", "")
	if !phonePattern.MatchString(s) {
		return Contact{}, ErrInvalidContact
	}
	return Contact{Kind: ContactPhone, Value: s}, nil
}

// ParseEmail parses a raw identifier that must be an email address.
func ParseEmail(raw string) (Contact, error) {
	c, err := ParseContact(raw)
	if err != nil || c.Kind != ContactEmail {
		return Contact{}, ErrInvalidContact
	}
	return c, nil
}

// Channel returns the verification channel matching the contact kind.
func (c Contact) Channel() Channel {
	if c.Kind == ContactPhone {
		return ChannelSMS
	}
	return ChannelEmail
}

// Masked returns a redacted form safe to echo back to an unauthenticated
// caller, e.g. "a***e@example.com" or "+61*******89".
func (c Contact) Masked() string {
	switch c.Kind {
	case ContactEmail:
		at := strings.Index(c.Value, "@")
		local, dom := c.Value[:at], c.Value[at:]
		if len(local) <= 2 {
			return local[:1] + "***" + dom
		}
		return local[:1] + "***" + local[len(local)-1:] + dom
	case ContactPhone:
		if len(c.Value) <= 5 {
			return c.Value
		}
		return c.Value[:3] + strings.Repeat("*", len(c.Value)-5) + c.Value[len(c.Value)-2:]
	}
	return ""
}
