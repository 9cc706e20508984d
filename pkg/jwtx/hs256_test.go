package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testIssuer = "identity-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewCodec_RejectsShortSecret(t *testing.T) {
	_, err := NewCodec([]byte("too-short"), testIssuer)
	require.Error(t, err)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	codec, err := NewCodec(testSecret, testIssuer)
	require.NoError(t, err)

	now := time.Now()
	claims := codec.NewAccessClaims("account-1", "candidate", true, time.Minute, now)
	require.NotEmpty(t, claims.ID, "jti should be populated")

	raw, err := codec.Sign(claims)
	require.NoError(t, err)

	got, err := codec.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "account-1", got.Subject)
	require.Equal(t, "candidate", got.Role)
	require.True(t, got.Verified)
	require.Equal(t, testIssuer, got.Issuer)
	require.Equal(t, claims.ID, got.ID)
}

func TestVerify_WrongSecret(t *testing.T) {
	codec, err := NewCodec(testSecret, testIssuer)
	require.NoError(t, err)
	other, err := NewCodec([]byte("ffffffffffffffffffffffffffffffff"), testIssuer)
	require.NoError(t, err)

	raw, err := codec.Sign(codec.NewAccessClaims("account-1", "agent", false, time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = other.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongIssuer(t *testing.T) {
	codec, err := NewCodec(testSecret, testIssuer)
	require.NoError(t, err)
	otherIssuer, err := NewCodec(testSecret, "someone-else")
	require.NoError(t, err)

	raw, err := otherIssuer.Sign(otherIssuer.NewAccessClaims("account-1", "agent", false, time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	codec, err := NewCodec(testSecret, testIssuer)
	require.NoError(t, err)

	issuedAt := time.Now().Add(-2 * time.Minute)
	raw, err := codec.Sign(codec.NewAccessClaims("account-1", "agent", false, time.Minute, issuedAt))
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_Garbage(t *testing.T) {
	codec, err := NewCodec(testSecret, testIssuer)
	require.NoError(t, err)

	_, err = codec.Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRemainingValidity(t *testing.T) {
	now := time.Now()
	claims := NewAccessClaims("account-1", "agent", false, time.Minute, testIssuer, now)

	remaining := claims.RemainingValidity(now)
	require.InDelta(t, time.Minute, remaining, float64(time.Second))

	require.Equal(t, time.Duration(0), claims.RemainingValidity(now.Add(2*time.Minute)))
	require.Equal(t, time.Duration(0), Claims{}.RemainingValidity(now))
}

func TestNewJTI_Unique(t *testing.T) {
	seen := make(map[string]bool, 100)
	for range 100 {
		jti := NewJTI()
		require.NotEmpty(t, jti)
		require.NotContains(t, seen, jti)
		seen[jti] = true
	}
}
