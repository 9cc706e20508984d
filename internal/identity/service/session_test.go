package service

import (
	"context"
	"testing"

	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	reg, sess, _, dispatcher, st := newTestServices(t)

	registerAccount(t, reg, dispatcher, "alice@example.com", "s3curepass")

	pair, err := sess.Login(ctx, "Alice@Example.com", "s3curepass", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := sess.Codec.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, domain.RoleCandidate, claims.Role)
	require.True(t, claims.Verified)

	account, err := st.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, account.LastLoginAt)
	require.Equal(t, account.ID, claims.Subject)
}

func TestLogin_WrongPasswordNoLockout(t *testing.T) {
	ctx := context.Background()
	reg, sess, _, dispatcher, _ := newTestServices(t)

	registerAccount(t, reg, dispatcher, "alice@example.com", "s3curepass")

	// Repeated failures never lock the account.
	for range 3 {
		_, err := sess.Login(ctx, "alice@example.com", "wrong-pass1", "test-agent")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	pair, err := sess.Login(ctx, "alice@example.com", "s3curepass", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
}

func TestLogin_UnknownIdentifier(t *testing.T) {
	ctx := context.Background()
	_, sess, _, _, _ := newTestServices(t)

	_, err := sess.Login(ctx, "ghost@example.com", "s3curepass", "test-agent")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = sess.Login(ctx, "not an identifier", "s3curepass", "test-agent")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_PasswordlessAccountRejected(t *testing.T) {
	ctx := context.Background()
	reg, sess, _, dispatcher, _ := newTestServices(t)

	// Phone registration without a password.
	registerAccount(t, reg, dispatcher, "+61412345678", "")

	_, err := sess.Login(ctx, "+61412345678", "", "test-agent")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = sess.Login(ctx, "+61412345678", "anything1", "test-agent")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	ctx := context.Background()
	reg, sess, _, dispatcher, _ := newTestServices(t)

	first := registerAccount(t, reg, dispatcher, "alice@example.com", "s3curepass")

	second, err := sess.Refresh(ctx, first.RefreshToken, "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, second.RefreshToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Rotation is strict: the old token is dead.
	_, err = sess.Refresh(ctx, first.RefreshToken, "test-agent")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// The new one keeps working.
	third, err := sess.Refresh(ctx, second.RefreshToken, "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, third.AccessToken)
}

func TestRefresh_UnknownToken(t *testing.T) {
	ctx := context.Background()
	_, sess, _, _, _ := newTestServices(t)

	_, err := sess.Refresh(ctx, "never-issued", "test-agent")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogout_RevokesRefreshAndDenylistsAccess(t *testing.T) {
	ctx := context.Background()
	reg, sess, _, dispatcher, st := newTestServices(t)

	pair := registerAccount(t, reg, dispatcher, "alice@example.com", "s3curepass")

	claims, err := sess.Codec.Verify(pair.AccessToken)
	require.NoError(t, err)

	revoked, err := sess.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, sess.Logout(ctx, pair.RefreshToken, claims))

	_, err = sess.Refresh(ctx, pair.RefreshToken, "test-agent")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	revoked, err = sess.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	require.True(t, revoked, "access token jti should be deny-listed until expiry")

	// Idempotent: a second logout of the same session succeeds.
	require.NoError(t, sess.Logout(ctx, pair.RefreshToken, claims))

	// Deny-list entries exist in storage with the token's expiry.
	got, err := st.RevokedAccessTokens().IsAccessTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	require.True(t, got)
}

func TestLogout_WithoutRefreshTokenRevokesAllSessions(t *testing.T) {
	ctx := context.Background()
	reg, sess, _, dispatcher, _ := newTestServices(t)

	first := registerAccount(t, reg, dispatcher, "alice@example.com", "s3curepass")
	second, err := sess.Login(ctx, "alice@example.com", "s3curepass", "other-device")
	require.NoError(t, err)

	claims, err := sess.Codec.Verify(first.AccessToken)
	require.NoError(t, err)

	require.NoError(t, sess.Logout(ctx, "", claims))

	// Every session dies, not just the one behind the access token.
	_, err = sess.Refresh(ctx, first.RefreshToken, "test-agent")
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = sess.Refresh(ctx, second.RefreshToken, "other-device")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogin_DisabledAccount(t *testing.T) {
	ctx := context.Background()
	reg, sess, _, dispatcher, st := newTestServices(t)

	registerAccount(t, reg, dispatcher, "alice@example.com", "s3curepass")

	account, err := st.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, st.Accounts().UpdateAccountStatus(ctx, account.ID, domain.StatusSuspended))

	_, err = sess.Login(ctx, "alice@example.com", "s3curepass", "test-agent")
	require.ErrorIs(t, err, ErrAccountDisabled)
}
