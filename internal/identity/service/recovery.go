package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nexhire/nexhire/internal/identity/dispatch"
	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/nexhire/nexhire/internal/identity/store"
	"github.com/nexhire/nexhire/pkg/cryptox"
	"github.com/nexhire/nexhire/pkg/slogx"
)

// DefaultResetTokenTTL is how long a password-reset link stays usable.
const DefaultResetTokenTTL = 1 * time.Hour

var (
	ErrResetTokenInvalid = errors.New("reset_token_invalid")
	ErrSamePassword      = errors.New("same_password")
)

// RecoveryService handles forgotten and deliberate password changes. Both
// paths revoke every refresh token for the account, so stolen sessions die
// with the old password.
type RecoveryService struct {
	Store      store.Store
	Dispatcher dispatch.Dispatcher
	Audit      *AuditService
	ResetTTL   time.Duration
}

func (s *RecoveryService) resetTTL() time.Duration {
	if s.ResetTTL <= 0 {
		return DefaultResetTokenTTL
	}
	return s.ResetTTL
}

// ForgotPassword issues a reset token for the account behind the email and
// dispatches it. Unknown emails are silently accepted so the endpoint cannot
// be used to probe which addresses have accounts.
func (s *RecoveryService) ForgotPassword(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	contact, err := domain.ParseEmail(email)
	if err != nil {
		// Treat garbage the same as an unknown address.
		return nil
	}

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, contact.Value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email",
				slog.String("contact", contact.Masked()),
			)
			return nil
		}
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.resetTTL())

	if err := s.Store.Accounts().SetResetToken(ctx, account.ID, cryptox.FingerprintToken(token), expiresAt); err != nil {
		return err
	}

	if err := s.Dispatcher.SendResetLink(ctx, contact.Value, token); err != nil {
		l.Error("reset link delivery failed",
			slog.String("contact", contact.Masked()),
			slog.Any("error", err),
		)
		return ErrDeliveryFailed
	}

	s.Audit.Emit(ctx, EventResetRequested, account.ID, contact.Masked())
	return nil
}

// ResetPassword consumes a reset token and installs the new password. All
// refresh tokens for the account are revoked in the same transaction.
func (s *RecoveryService) ResetPassword(ctx context.Context, token, newPassword string) error {
	now := time.Now()

	account, err := s.Store.Accounts().GetAccountByResetTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	if account.ResetTokenExpiresAt == nil || now.After(*account.ResetTokenExpiresAt) {
		_ = s.Store.Accounts().ClearResetToken(ctx, account.ID)
		return ErrResetTokenInvalid
	}

	if err := cryptox.ValidatePasswordStrength(newPassword); err != nil {
		return ErrWeakPassword
	}
	if account.PasswordHash != "" && cryptox.VerifyPassword(newPassword, account.PasswordHash) == nil {
		return ErrSamePassword
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
			return err
		}
		if err := tx.Accounts().ClearResetToken(ctx, account.ID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, account.ID)
	})
	if err != nil {
		return err
	}

	s.Audit.Emit(ctx, EventPasswordReset, account.ID, "")
	return nil
}

// ChangePassword lets an authenticated account rotate its password. The
// current password must be presented, and every refresh token is revoked so
// other sessions must log in again.
func (s *RecoveryService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if account.PasswordHash == "" || cryptox.VerifyPassword(currentPassword, account.PasswordHash) != nil {
		return ErrInvalidCredentials
	}

	if err := cryptox.ValidatePasswordStrength(newPassword); err != nil {
		return ErrWeakPassword
	}
	if newPassword == currentPassword {
		return ErrSamePassword
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, account.ID)
	})
	if err != nil {
		return err
	}

	s.Audit.Emit(ctx, EventPasswordChanged, account.ID, "")
	return nil
}
