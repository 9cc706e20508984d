package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/nexhire/nexhire/internal/identity/store"
	"github.com/nexhire/nexhire/pkg/cryptox"
	"github.com/nexhire/nexhire/pkg/idx"
	"github.com/nexhire/nexhire/pkg/jwtx"
	"github.com/nexhire/nexhire/pkg/slogx"
)

var (
	ErrInvalidIdentifier = errors.New("invalid_identifier")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrWeakPassword      = errors.New("weak_password")
	ErrAlreadyRegistered = errors.New("already_registered")

	// ErrVerificationConsumed signals that the code for this flow was
	// already consumed: the lead is verified but the presented pending
	// token no longer maps to an active code. The caller should log in
	// or restart registration.
	ErrVerificationConsumed = errors.New("verification_consumed")
)

// StartInput is the payload of a registration attempt.
type StartInput struct {
	Identifier  string
	DisplayName string
	Password    string
	Role        string
	UTM         domain.UTM
}

// StartResult tells the caller where the code went and how to come back.
type StartResult struct {
	PendingToken string
	Channel      domain.Channel
	MaskedTo     string
	ExpiresIn    time.Duration
}

// RegistrationService drives the capture -> verify -> account state machine.
// No Account row exists until verification succeeds; everything before that
// lives on the Lead and the pending code record.
type RegistrationService struct {
	Store      store.Store
	OTP        *OTPService
	Codec      *jwtx.Codec
	Audit      *AuditService
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Start captures a lead and issues a verification code. Re-starting before
// verification overwrites the pending lead and replaces the active code;
// only the most recent code and pending token remain valid.
func (s *RegistrationService) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	contact, err := domain.ParseContact(in.Identifier)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}

	if in.Role != domain.RoleCandidate && in.Role != domain.RoleAgent {
		return nil, ErrInvalidRole
	}

	// Phone registrations may defer setting a password; email ones may not.
	if in.Password == "" && contact.Kind == domain.ContactEmail {
		return nil, ErrWeakPassword
	}
	var passwordHash string
	if in.Password != "" {
		if err := cryptox.ValidatePasswordStrength(in.Password); err != nil {
			return nil, ErrWeakPassword
		}
		passwordHash, err = cryptox.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.getAccountByContact(ctx, contact); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	lead := domain.Lead{
		ID:          idx.New().String(),
		DisplayName: in.DisplayName,
		Role:        in.Role,
		Method:      contact.Channel(),
		UTM:         in.UTM,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if contact.Kind == domain.ContactPhone {
		lead.Phone = contact.Value
	} else {
		lead.Email = contact.Value
	}
	if _, err := s.Store.Leads().UpsertLead(ctx, lead); err != nil {
		return nil, err
	}

	pending := domain.PendingRegistration{
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		PasswordHash: passwordHash,
		UTMSource:    in.UTM.Source,
		UTMMedium:    in.UTM.Medium,
		UTMCampaign:  in.UTM.Campaign,
	}
	pendingToken, err := s.OTP.Issue(ctx, contact, pending)
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("registration started",
		slog.String("contact", contact.Masked()),
		slog.String("role", in.Role),
	)
	s.Audit.Emit(ctx, EventRegistrationStarted, "", contact.Masked())

	return &StartResult{
		PendingToken: pendingToken,
		Channel:      contact.Channel(),
		MaskedTo:     contact.Masked(),
		ExpiresIn:    s.OTP.ttl(),
	}, nil
}

// Resend issues a fresh code for an in-flight registration, resetting the
// attempt counter. The pending token stays the same.
func (s *RegistrationService) Resend(ctx context.Context, identifier, pendingToken string) (*StartResult, error) {
	contact, err := domain.ParseContact(identifier)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	if err := s.OTP.Resend(ctx, contact, pendingToken); err != nil {
		return nil, err
	}
	return &StartResult{
		PendingToken: pendingToken,
		Channel:      contact.Channel(),
		MaskedTo:     contact.Masked(),
		ExpiresIn:    s.OTP.ttl(),
	}, nil
}

// Verify consumes the code and creates the account, atomically, then issues
// the first token pair. When two verifications race over one identifier the
// unique index picks the winner; the loser's call still proved ownership of
// the contact, so it gets a fresh pair for the winning account instead of an
// error.
func (s *RegistrationService) Verify(ctx context.Context, identifier, pendingToken, code, clientInfo string) (*domain.TokenPair, error) {
	contact, err := domain.ParseContact(identifier)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}

	now := time.Now()

	// Check the code first, outside the transaction: wrong guesses and
	// expiry must leave durable marks (the attempt counter, the record
	// deletion) that a rollback cannot undo. The record itself is consumed
	// inside the transaction below.
	rec, err := s.OTP.check(ctx, contact, pendingToken, code)
	if err != nil {
		return nil, s.mapConsumed(ctx, contact, err)
	}
	pending, err := domain.DecodePendingRegistration(rec.Metadata)
	if err != nil {
		return nil, err
	}

	var pair *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Consume the code. A concurrent verification may have beaten us
		// to it; the delete is the arbiter.
		if err := tx.OTPCodes().DeleteOTPCode(ctx, rec.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrCodeNotFound
			}
			return err
		}

		if lead, lerr := tx.Leads().GetLeadByIdentifier(ctx, contact.Value); lerr == nil {
			if merr := tx.Leads().MarkLeadVerified(ctx, lead.ID, contact.Channel()); merr != nil {
				return merr
			}
		} else if !errors.Is(lerr, store.ErrNotFound) {
			return lerr
		}

		account := domain.Account{
			ID:           idx.New().String(),
			DisplayName:  pending.DisplayName,
			PasswordHash: pending.PasswordHash,
			Role:         pending.Role,
			Status:       domain.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if contact.Kind == domain.ContactPhone {
			account.Phone = contact.Value
			account.PhoneVerified = true
		} else {
			account.Email = contact.Value
			account.EmailVerified = true
		}

		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// Lost the race. Issue tokens for whoever won.
				winner, gerr := s.getAccountByContactFrom(ctx, tx, contact)
				if gerr != nil {
					return gerr
				}
				pair, gerr = issueTokenPair(ctx, tx, s.Codec, winner, s.AccessTTL, s.RefreshTTL, clientInfo, now)
				return gerr
			}
			return err
		}

		pair, err = issueTokenPair(ctx, tx, s.Codec, account, s.AccessTTL, s.RefreshTTL, clientInfo, now)
		return err
	})
	if err != nil {
		return nil, s.mapConsumed(ctx, contact, err)
	}

	slogx.FromContext(ctx).Info("registration verified",
		slog.String("contact", contact.Masked()),
	)
	s.Audit.Emit(ctx, EventRegistrationVerified, "", contact.Masked())

	return pair, nil
}

// mapConsumed upgrades ErrCodeNotFound to ErrVerificationConsumed when the
// code is gone because this flow already finished.
func (s *RegistrationService) mapConsumed(ctx context.Context, contact domain.Contact, err error) error {
	if errors.Is(err, ErrCodeNotFound) {
		if lead, lerr := s.Store.Leads().GetLeadByIdentifier(ctx, contact.Value); lerr == nil && lead.Verified {
			return ErrVerificationConsumed
		}
	}
	return err
}

func (s *RegistrationService) getAccountByContact(ctx context.Context, c domain.Contact) (domain.Account, error) {
	return s.getAccountByContactFrom(ctx, s.Store, c)
}

func (s *RegistrationService) getAccountByContactFrom(ctx context.Context, st store.Store, c domain.Contact) (domain.Account, error) {
	if c.Kind == domain.ContactPhone {
		return st.Accounts().GetAccountByPhone(ctx, c.Value)
	}
	return st.Accounts().GetAccountByEmail(ctx, c.Value)
}
