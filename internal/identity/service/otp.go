package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/nexhire/nexhire/internal/identity/dispatch"
	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/nexhire/nexhire/internal/identity/store"
	"github.com/nexhire/nexhire/pkg/cryptox"
	"github.com/nexhire/nexhire/pkg/idx"
	"github.com/nexhire/nexhire/pkg/slogx"
)

const (
	// DefaultOTPTTL is how long an issued verification code stays valid.
	DefaultOTPTTL = 10 * time.Minute

	// MaxOTPAttempts is the number of wrong guesses allowed before the
	// code is destroyed and the flow must restart.
	MaxOTPAttempts = 5

	// TestModeOTPCode is the fixed code issued when test mode is enabled,
	// so integration environments can complete flows without a real
	// delivery provider.
	TestModeOTPCode = "000000"
)

var (
	ErrCodeNotFound    = errors.New("code_not_found")
	ErrCodeExpired     = errors.New("code_expired")
	ErrCodeMismatch    = errors.New("code_mismatch")
	ErrTooManyAttempts = errors.New("too_many_attempts")
	ErrDeliveryFailed  = errors.New("delivery_failed")
)

// OTPService issues and verifies single-use out-of-band verification codes.
// A code record carries the frozen registration payload in its metadata, so
// consuming the code is the only way to recover that payload.
type OTPService struct {
	Store      store.Store
	Dispatcher dispatch.Dispatcher
	TTL        time.Duration

	// TestMode replaces random codes with TestModeOTPCode. Never enable
	// in production.
	TestMode bool
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultOTPTTL
	}
	return s.TTL
}

// Issue creates a fresh code for the contact, freezing the pending
// registration payload onto the record, and dispatches it. Any previous code
// for the same contact is replaced. Returns the opaque pending token the
// caller must present alongside the code.
func (s *OTPService) Issue(ctx context.Context, contact domain.Contact, pending domain.PendingRegistration) (string, error) {
	pendingToken, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", err
	}
	if err := s.issueWith(ctx, contact, cryptox.FingerprintToken(pendingToken), pending); err != nil {
		return "", err
	}
	return pendingToken, nil
}

// Resend replaces the active code for the contact with a new one, resetting
// the attempt counter, under the same pending token. The frozen registration
// payload is carried over unchanged.
func (s *OTPService) Resend(ctx context.Context, contact domain.Contact, pendingToken string) error {
	rec, err := s.Store.OTPCodes().GetOTPCode(ctx, contact.Value, contact.Channel())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeNotFound
		}
		return err
	}

	fp := cryptox.FingerprintToken(pendingToken)
	if subtle.ConstantTimeCompare([]byte(rec.PendingTokenHash), []byte(fp)) != 1 {
		return ErrCodeNotFound
	}

	pending, err := domain.DecodePendingRegistration(rec.Metadata)
	if err != nil {
		return err
	}
	return s.issueWith(ctx, contact, rec.PendingTokenHash, pending)
}

// Verify consumes the active code for the contact. On success the record is
// destroyed and the frozen registration payload returned. Wrong guesses bump
// the attempt counter; the fifth wrong guess destroys the record.
func (s *OTPService) Verify(ctx context.Context, contact domain.Contact, pendingToken, code string) (domain.PendingRegistration, error) {
	rec, err := s.check(ctx, contact, pendingToken, code)
	if err != nil {
		return domain.PendingRegistration{}, err
	}

	if err := s.Store.OTPCodes().DeleteOTPCode(ctx, rec.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PendingRegistration{}, ErrCodeNotFound
		}
		return domain.PendingRegistration{}, err
	}

	return domain.DecodePendingRegistration(rec.Metadata)
}

// check validates the code without consuming it and returns the matching
// record. All punitive bookkeeping lives here, against the root store, so a
// caller's surrounding transaction can never roll back an attempt increment
// or an expiry/attempt-cap deletion. Consuming the returned record (deleting
// it by ID) is the caller's job; registration does that inside the same
// transaction that creates the account.
func (s *OTPService) check(ctx context.Context, contact domain.Contact, pendingToken, code string) (domain.OTPCode, error) {
	now := time.Now()

	rec, err := s.Store.OTPCodes().GetOTPCode(ctx, contact.Value, contact.Channel())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OTPCode{}, ErrCodeNotFound
		}
		return domain.OTPCode{}, err
	}

	fp := cryptox.FingerprintToken(pendingToken)
	if subtle.ConstantTimeCompare([]byte(rec.PendingTokenHash), []byte(fp)) != 1 {
		return domain.OTPCode{}, ErrCodeNotFound
	}

	if rec.Expired(now) {
		_ = s.Store.OTPCodes().DeleteOTPCode(ctx, rec.ID)
		return domain.OTPCode{}, ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		attempts, err := s.Store.OTPCodes().IncrementOTPAttempts(ctx, rec.ID)
		if err != nil {
			return domain.OTPCode{}, err
		}
		if attempts >= MaxOTPAttempts {
			_ = s.Store.OTPCodes().DeleteOTPCode(ctx, rec.ID)
			slogx.FromContext(ctx).Warn("verification code destroyed after too many attempts",
				slog.String("contact", contact.Masked()),
			)
			return domain.OTPCode{}, ErrTooManyAttempts
		}
		return domain.OTPCode{}, ErrCodeMismatch
	}

	return rec, nil
}

func (s *OTPService) issueWith(ctx context.Context, contact domain.Contact, pendingTokenHash string, pending domain.PendingRegistration) error {
	now := time.Now()

	code := TestModeOTPCode
	if !s.TestMode {
		var err error
		code, err = cryptox.GenerateOTPCode()
		if err != nil {
			return err
		}
	}

	meta, err := pending.Encode()
	if err != nil {
		return err
	}

	rec := domain.OTPCode{
		ID:               idx.New().String(),
		Identifier:       contact.Value,
		Channel:          contact.Channel(),
		Code:             code,
		PendingTokenHash: pendingTokenHash,
		Attempts:         0,
		Metadata:         meta,
		ExpiresAt:        now.Add(s.ttl()),
		CreatedAt:        now,
	}
	if err := s.Store.OTPCodes().ReplaceOTPCode(ctx, rec); err != nil {
		return err
	}

	switch contact.Channel() {
	case domain.ChannelSMS:
		err = s.Dispatcher.SendSMSOTP(ctx, contact.Value, code, pending.DisplayName)
	default:
		err = s.Dispatcher.SendEmailOTP(ctx, contact.Value, code, pending.DisplayName)
	}
	if err != nil {
		slogx.FromContext(ctx).Error("verification code delivery failed",
			slog.String("contact", contact.Masked()),
			slog.Any("error", err),
		)
		return ErrDeliveryFailed
	}
	return nil
}
