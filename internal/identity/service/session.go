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
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
)

// SessionService authenticates accounts and manages the refresh-token
// lifecycle: issuance, rotation and revocation.
type SessionService struct {
	Store      store.Store
	Codec      *jwtx.Codec
	Audit      *AuditService
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies credentials for an email or phone identifier and issues a
// token pair. All credential failures collapse into ErrInvalidCredentials so
// the response does not reveal whether the account exists.
func (s *SessionService) Login(ctx context.Context, identifier, password, clientInfo string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	contact, err := domain.ParseContact(identifier)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	account, err := s.getAccountByContact(ctx, contact)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn comparable time so lookups for unknown identifiers
			// are not distinguishable by latency.
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash())
			s.Audit.Emit(ctx, EventLoginFailed, "", contact.Masked())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// A passwordless account still burns a full verification against the
	// dummy hash, so it costs the same wall time as a wrong password.
	hash := account.PasswordHash
	if hash == "" {
		hash = cryptox.DummyHash()
	}
	if cryptox.VerifyPassword(password, hash) != nil {
		l.Info("login failed", slog.String("contact", contact.Masked()))
		s.Audit.Emit(ctx, EventLoginFailed, account.ID, contact.Masked())
		return nil, ErrInvalidCredentials
	}

	if !account.CanLogin() {
		s.Audit.Emit(ctx, EventLoginBlocked, account.ID, contact.Masked())
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	if err := s.Store.Accounts().UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, err
	}

	pair, err := issueTokenPair(ctx, s.Store, s.Codec, account, s.AccessTTL, s.RefreshTTL, clientInfo, now)
	if err != nil {
		return nil, err
	}

	s.Audit.Emit(ctx, EventLogin, account.ID, contact.Masked())
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair issued atomically. A revoked or expired token is rejected outright.
func (s *SessionService) Refresh(ctx context.Context, refreshOpaque, clientInfo string) (*domain.TokenPair, error) {
	now := time.Now()

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if rt.Revoked || now.After(rt.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, rt.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !account.CanLogin() {
		return nil, ErrAccountDisabled
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// The conditional revoke is the arbiter under concurrent
		// presentations of one token: only the first one flips the row.
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		pair, err = issueTokenPair(ctx, tx, s.Codec, account, s.AccessTTL, s.RefreshTTL, clientInfo, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Emit(ctx, EventTokenRefreshed, account.ID, "")
	return pair, nil
}

// Logout revokes the presented refresh token and deny-lists the access token
// that authorized the call until its natural expiry. Without a refresh token
// it is a logout-everywhere: every refresh token for the account is revoked.
// Revoking an unknown refresh token is a no-op: logout is idempotent.
func (s *SessionService) Logout(ctx context.Context, refreshOpaque string, claims jwtx.Claims) error {
	if refreshOpaque != "" {
		fp := cryptox.FingerprintToken(refreshOpaque)
		if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	} else if claims.Subject != "" {
		if err := s.Store.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, claims.Subject); err != nil {
			return err
		}
	}

	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.Store.RevokedAccessTokens().RevokeAccessToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return err
		}
	}

	s.Audit.Emit(ctx, EventLogout, claims.Subject, "")
	return nil
}

// IsRevoked reports whether an access-token jti is on the deny-list. It
// satisfies the authentication middleware's Denylist interface.
func (s *SessionService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.Store.RevokedAccessTokens().IsAccessTokenRevoked(ctx, jti)
}

func (s *SessionService) getAccountByContact(ctx context.Context, c domain.Contact) (domain.Account, error) {
	if c.Kind == domain.ContactPhone {
		return s.Store.Accounts().GetAccountByPhone(ctx, c.Value)
	}
	return s.Store.Accounts().GetAccountByEmail(ctx, c.Value)
}

// issueTokenPair signs an access token for the account and persists a new
// refresh-token record against the given store, which may be a transaction.
func issueTokenPair(
	ctx context.Context,
	st store.Store,
	codec *jwtx.Codec,
	account domain.Account,
	accessTTL, refreshTTL time.Duration,
	clientInfo string,
	now time.Time,
) (*domain.TokenPair, error) {
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	verified := account.EmailVerified || account.PhoneVerified
	claims := codec.NewAccessClaims(account.ID, account.Role, verified, accessTTL, now)
	accessToken, err := codec.Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:         idx.New().String(),
		AccountID:  account.ID,
		TokenHash:  cryptox.FingerprintToken(refreshOpaque),
		ClientInfo: clientInfo,
		ExpiresAt:  now.Add(refreshTTL),
		Revoked:    false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := st.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTL,
	}, nil
}
