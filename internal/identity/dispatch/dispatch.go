// Package dispatch abstracts outbound delivery of verification codes and
// recovery links. Production deployments plug in a real email or SMS
// provider; development and tests use the logging dispatcher.
package dispatch

import "context"

// Dispatcher delivers one-time codes and recovery links to end users.
// displayName is the recipient's name for message templates; it may be empty.
type Dispatcher interface {
	// SendEmailOTP delivers a verification code to an email address.
	SendEmailOTP(ctx context.Context, email, code, displayName string) error

	// SendSMSOTP delivers a verification code to a phone number.
	SendSMSOTP(ctx context.Context, phone, code, displayName string) error

	// SendResetLink delivers a password reset token to an email address.
	SendResetLink(ctx context.Context, email, token string) error
}
