package service

import (
	"context"
	"testing"
	"time"

	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/nexhire/nexhire/internal/identity/store"
	"github.com/nexhire/nexhire/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestRegistration_FullFlow_Email(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, st := newTestServices(t)

	result, err := reg.Start(ctx, StartInput{
		Identifier:  "Alice@Example.com",
		DisplayName: "Alice",
		Password:    "s3curepass",
		Role:        domain.RoleCandidate,
		UTM:         domain.UTM{Source: "newsletter", Campaign: "launch"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ChannelEmail, result.Channel)
	require.NotEmpty(t, result.PendingToken)
	require.NotEqual(t, "alice@example.com", result.MaskedTo)

	// No account yet; only the lead exists.
	_, err = st.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	lead, err := st.Leads().GetLeadByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "newsletter", lead.UTM.Source)
	require.False(t, lead.Verified)

	code := dispatcher.lastEmailCode(t)
	pair, err := reg.Verify(ctx, "alice@example.com", result.PendingToken, code, "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)

	account, err := st.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "Alice", account.DisplayName)
	require.Equal(t, domain.RoleCandidate, account.Role)
	require.True(t, account.EmailVerified)
	require.Equal(t, domain.StatusActive, account.Status)
	require.NotEmpty(t, account.PasswordHash)

	lead, err = st.Leads().GetLeadByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, lead.Verified)
	require.True(t, lead.EmailVerified)
}

func TestRegistration_FullFlow_Phone(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, st := newTestServices(t)

	result, err := reg.Start(ctx, StartInput{
		Identifier:  "+61 412 345 678",
		DisplayName: "Bob",
		Role:        domain.RoleAgent,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ChannelSMS, result.Channel)

	code := dispatcher.lastSMSCode(t)
	pair, err := reg.Verify(ctx, "+61412345678", result.PendingToken, code, "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	account, err := st.Accounts().GetAccountByPhone(ctx, "+61412345678")
	require.NoError(t, err)
	require.True(t, account.PhoneVerified)
	require.Empty(t, account.Email)
	require.Empty(t, account.PasswordHash, "phone registration may defer the password")
}

func TestRegistrationStart_Validation(t *testing.T) {
	ctx := context.Background()
	reg, _, _, _, _ := newTestServices(t)

	_, err := reg.Start(ctx, StartInput{Identifier: "not-an-identifier", Password: "s3curepass", Role: domain.RoleCandidate})
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = reg.Start(ctx, StartInput{Identifier: "a@example.com", Password: "s3curepass", Role: domain.RoleAdmin})
	require.ErrorIs(t, err, ErrInvalidRole, "admin accounts are not self-registerable")

	_, err = reg.Start(ctx, StartInput{Identifier: "a@example.com", Password: "s3curepass", Role: "wizard"})
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = reg.Start(ctx, StartInput{Identifier: "a@example.com", Password: "short", Role: domain.RoleCandidate})
	require.ErrorIs(t, err, ErrWeakPassword)

	_, err = reg.Start(ctx, StartInput{Identifier: "a@example.com", Role: domain.RoleCandidate})
	require.ErrorIs(t, err, ErrWeakPassword, "email registration requires a password")
}

func TestRegistrationStart_AlreadyRegistered(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, _ := newTestServices(t)

	registerAccount(t, reg, dispatcher, "alice@example.com", "s3curepass")

	_, err := reg.Start(ctx, StartInput{
		Identifier: "alice@example.com",
		Password:   "an0therpass",
		Role:       domain.RoleCandidate,
	})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegistrationStart_RestartOverwritesLead(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, st := newTestServices(t)

	first, err := reg.Start(ctx, StartInput{
		Identifier:  "alice@example.com",
		DisplayName: "Alice",
		Password:    "s3curepass",
		Role:        domain.RoleCandidate,
	})
	require.NoError(t, err)
	firstCode := dispatcher.lastEmailCode(t)

	lead1, err := st.Leads().GetLeadByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)

	second, err := reg.Start(ctx, StartInput{
		Identifier:  "alice@example.com",
		DisplayName: "Alice Smith",
		Password:    "n3wpassword",
		Role:        domain.RoleAgent,
	})
	require.NoError(t, err)

	// One lead per identifier; the pending record is overwritten in place.
	lead2, err := st.Leads().GetLeadByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, lead1.ID, lead2.ID)
	require.Equal(t, "Alice Smith", lead2.DisplayName)
	require.Equal(t, domain.RoleAgent, lead2.Role)

	// The first flow is dead.
	_, err = reg.Verify(ctx, "alice@example.com", first.PendingToken, firstCode, "test-agent")
	require.ErrorIs(t, err, ErrCodeNotFound)

	// The second flow completes with the overwritten payload.
	pair, err := reg.Verify(ctx, "alice@example.com", second.PendingToken, dispatcher.lastEmailCode(t), "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	account, err := st.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "Alice Smith", account.DisplayName)
	require.Equal(t, domain.RoleAgent, account.Role)
}

func TestRegistrationVerify_ConsumedFlow(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, _ := newTestServices(t)

	result, err := reg.Start(ctx, StartInput{
		Identifier: "alice@example.com",
		Password:   "s3curepass",
		Role:       domain.RoleCandidate,
	})
	require.NoError(t, err)
	code := dispatcher.lastEmailCode(t)

	_, err = reg.Verify(ctx, "alice@example.com", result.PendingToken, code, "test-agent")
	require.NoError(t, err)

	// Replaying the verification reports the flow as finished, not a bad code.
	_, err = reg.Verify(ctx, "alice@example.com", result.PendingToken, code, "test-agent")
	require.ErrorIs(t, err, ErrVerificationConsumed)
}

func TestRegistrationVerify_RaceReturnsWinnerTokens(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, st := newTestServices(t)

	result, err := reg.Start(ctx, StartInput{
		Identifier: "alice@example.com",
		Password:   "s3curepass",
		Role:       domain.RoleCandidate,
	})
	require.NoError(t, err)
	code := dispatcher.lastEmailCode(t)

	// Another request wins the unique index before this verification lands.
	winner := domain.Account{
		ID:            idx.New().String(),
		DisplayName:   "Alice (winner)",
		Email:         "alice@example.com",
		Role:          domain.RoleCandidate,
		Status:        domain.StatusActive,
		EmailVerified: true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.Accounts().CreateAccount(ctx, winner))

	pair, err := reg.Verify(ctx, "alice@example.com", result.PendingToken, code, "test-agent")
	require.NoError(t, err, "losing the race still proves contact ownership")
	require.NotEmpty(t, pair.AccessToken)

	rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, fingerprintForTest(pair.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, winner.ID, rt.AccountID, "tokens must belong to the winning account")
}

func TestRegistrationVerify_WrongGuessesPersistAttempts(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, st := newTestServices(t)

	result, err := reg.Start(ctx, StartInput{
		Identifier: "alice@example.com",
		Password:   "s3curepass",
		Role:       domain.RoleCandidate,
	})
	require.NoError(t, err)
	code := dispatcher.lastEmailCode(t)

	wrong := "999999"
	if code == wrong {
		wrong = "999998"
	}

	for i := 1; i < MaxOTPAttempts; i++ {
		_, err = reg.Verify(ctx, "alice@example.com", result.PendingToken, wrong, "test-agent")
		require.ErrorIs(t, err, ErrCodeMismatch, "attempt %d", i)

		// Each wrong guess must leave a durable mark; a rolled-back
		// counter would hand out unlimited guesses.
		rec, gerr := st.OTPCodes().GetOTPCode(ctx, "alice@example.com", domain.ChannelEmail)
		require.NoError(t, gerr)
		require.Equal(t, i, rec.Attempts)
	}

	// The fifth wrong guess destroys the record.
	_, err = reg.Verify(ctx, "alice@example.com", result.PendingToken, wrong, "test-agent")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// Even the correct code is dead now.
	_, err = reg.Verify(ctx, "alice@example.com", result.PendingToken, code, "test-agent")
	require.ErrorIs(t, err, ErrCodeNotFound)

	_, err = st.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, store.ErrNotFound, "no account may exist after a capped-out flow")
}

func TestRegistrationVerify_ExpiredCodeIsDestroyed(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, st := newTestServices(t)
	reg.OTP.TTL = shortTTL()

	result, err := reg.Start(ctx, StartInput{
		Identifier: "alice@example.com",
		Password:   "s3curepass",
		Role:       domain.RoleCandidate,
	})
	require.NoError(t, err)
	code := dispatcher.lastEmailCode(t)

	_, err = reg.Verify(ctx, "alice@example.com", result.PendingToken, code, "test-agent")
	require.ErrorIs(t, err, ErrCodeExpired)

	// Detection deletes the record; it does not linger until housekeeping.
	_, err = st.OTPCodes().GetOTPCode(ctx, "alice@example.com", domain.ChannelEmail)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegistrationResend_FlowStaysValid(t *testing.T) {
	ctx := context.Background()
	reg, _, _, dispatcher, _ := newTestServices(t)

	result, err := reg.Start(ctx, StartInput{
		Identifier: "alice@example.com",
		Password:   "s3curepass",
		Role:       domain.RoleCandidate,
	})
	require.NoError(t, err)

	resent, err := reg.Resend(ctx, "alice@example.com", result.PendingToken)
	require.NoError(t, err)
	require.Equal(t, result.PendingToken, resent.PendingToken, "resend keeps the same pending token")

	pair, err := reg.Verify(ctx, "alice@example.com", result.PendingToken, dispatcher.lastEmailCode(t), "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
}
