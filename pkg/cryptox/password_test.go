package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	tmpDir := os.TempDir()
	pepperPath := filepath.Join(tmpDir, "identity-test-pepper")
	SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func TestHashPassword_PHCFormat(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), "hash should be in PHC format")

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 6, "PHC hash should have 6 parts")
	require.Contains(t, parts[3], "m=19456", "memory parameter should be 19456 (19*1024)")
	require.Contains(t, parts[3], "t=2")
	require.Contains(t, parts[3], "p=1")
	require.NotEmpty(t, parts[4], "salt should not be empty")
	require.NotEmpty(t, parts[5], "digest should not be empty")
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	password := "samepassword1"

	hash1, err := HashPassword(password)
	require.NoError(t, err)
	hash2, err := HashPassword(password)
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")

	require.NoError(t, VerifyPassword(password, hash1))
	require.NoError(t, VerifyPassword(password, hash2))
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-password1")
	require.NoError(t, err)

	wrong := []string{
		"wrong-password1",
		"Correct-Password1",
		"correct-password1 ",
		"",
		strings.Repeat("x", 10000),
	}
	for _, wp := range wrong {
		require.ErrorIs(t, VerifyPassword(wp, hash), ErrPasswordMismatch)
	}
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	tests := []struct {
		name        string
		invalidHash string
	}{
		{"empty hash", ""},
		{"wrong algorithm", "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid base64 digest", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword("test-password1", tt.invalidHash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid minimum", "abcdef12", true},
		{"valid mixed", "C0rrect-horse-battery", true},
		{"too short", "ab1", false},
		{"too long", strings.Repeat("a1", 100), false},
		{"letters only", "abcdefgh", false},
		{"digits only", "12345678", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}

func TestDummyHash(t *testing.T) {
	hash := DummyHash()
	require.NotEmpty(t, hash)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	// Stable across calls, and never matches a real password attempt.
	require.Equal(t, hash, DummyHash())
	require.ErrorIs(t, VerifyPassword("any-password1", hash), ErrPasswordMismatch)
}
