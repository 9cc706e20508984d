package identity_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRegistrationFlow drives start -> verify for an email identifier and
// checks the first token pair comes back.
func TestRegistrationFlow(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	var start startResponse
	status := postJSON(t, baseURL+"/v1/register/start", map[string]any{
		"identifier":   "alice@example.com",
		"display_name": "Alice",
		"password":     testPassword,
		"role":         "candidate",
		"utm_source":   "e2e",
	}, &start)
	require.Equal(t, http.StatusAccepted, status)
	require.NotEmpty(t, start.PendingToken)
	require.Equal(t, "email", start.Channel)
	require.NotEqual(t, "alice@example.com", start.SentTo, "destination should be masked")
	require.Positive(t, start.ExpiresIn)

	var pair tokenResponse
	status = postJSON(t, baseURL+"/v1/register/verify", map[string]any{
		"identifier":    "alice@example.com",
		"pending_token": start.PendingToken,
		"code":          testModeOTPCode,
	}, &pair)
	require.Equal(t, http.StatusCreated, status)
	assertTokenResponse(t, pair)

	t.Logf("Registration flow completed, received token pair")
}

// TestRegistrationPhoneWithoutPassword verifies SMS registrations may omit
// the password entirely.
func TestRegistrationPhoneWithoutPassword(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	var start startResponse
	status := postJSON(t, baseURL+"/v1/register/start", map[string]any{
		"identifier":   "+61412345678",
		"display_name": "Bob",
		"role":         "candidate",
	}, &start)
	require.Equal(t, http.StatusAccepted, status)
	require.Equal(t, "sms", start.Channel)

	var pair tokenResponse
	status = postJSON(t, baseURL+"/v1/register/verify", map[string]any{
		"identifier":    "+61412345678",
		"pending_token": start.PendingToken,
		"code":          testModeOTPCode,
	}, &pair)
	require.Equal(t, http.StatusCreated, status)
	assertTokenResponse(t, pair)
}

// TestRegistrationResend verifies resend keeps the pending token usable.
func TestRegistrationResend(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	var start startResponse
	status := postJSON(t, baseURL+"/v1/register/start", map[string]any{
		"identifier":   "carol@example.com",
		"display_name": "Carol",
		"password":     testPassword,
		"role":         "agent",
	}, &start)
	require.Equal(t, http.StatusAccepted, status)

	var resend startResponse
	status = postJSON(t, baseURL+"/v1/register/resend", map[string]any{
		"identifier":    "carol@example.com",
		"pending_token": start.PendingToken,
	}, &resend)
	require.Equal(t, http.StatusAccepted, status)
	require.Equal(t, start.PendingToken, resend.PendingToken, "resend keeps the same pending token")

	var pair tokenResponse
	status = postJSON(t, baseURL+"/v1/register/verify", map[string]any{
		"identifier":    "carol@example.com",
		"pending_token": resend.PendingToken,
		"code":          testModeOTPCode,
	}, &pair)
	require.Equal(t, http.StatusCreated, status)
	assertTokenResponse(t, pair)
}

// TestRegistrationValidation exercises the start endpoint's input rejection.
func TestRegistrationValidation(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	cases := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantError  string
	}{
		{
			name: "invalid identifier",
			body: map[string]any{
				"identifier": "not-a-contact", "display_name": "X",
				"password": testPassword, "role": "candidate",
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_identifier",
		},
		{
			name: "admin role is not self-registerable",
			body: map[string]any{
				"identifier": "eve@example.com", "display_name": "Eve",
				"password": testPassword, "role": "admin",
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_role",
		},
		{
			name: "email requires a password",
			body: map[string]any{
				"identifier": "dave@example.com", "display_name": "Dave",
				"role": "candidate",
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "weak_password",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var errResp errorResponse
			status := postJSON(t, baseURL+"/v1/register/start", tc.body, &errResp)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantError, errResp.Error)
		})
	}
}

// TestRegistrationAlreadyRegistered verifies re-registering a verified
// identifier is rejected with a 409.
func TestRegistrationAlreadyRegistered(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	registerUser(t, baseURL, "alice@example.com", testPassword)

	var errResp errorResponse
	status := postJSON(t, baseURL+"/v1/register/start", map[string]any{
		"identifier":   "alice@example.com",
		"display_name": "Alice Again",
		"password":     testPassword,
		"role":         "candidate",
	}, &errResp)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "already_registered", errResp.Error)
}

// TestRegistrationWrongCode verifies a wrong code is rejected without
// consuming the registration.
func TestRegistrationWrongCode(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	var start startResponse
	status := postJSON(t, baseURL+"/v1/register/start", map[string]any{
		"identifier":   "frank@example.com",
		"display_name": "Frank",
		"password":     testPassword,
		"role":         "candidate",
	}, &start)
	require.Equal(t, http.StatusAccepted, status)

	var errResp errorResponse
	status = postJSON(t, baseURL+"/v1/register/verify", map[string]any{
		"identifier":    "frank@example.com",
		"pending_token": start.PendingToken,
		"code":          "999999",
	}, &errResp)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "code_mismatch", errResp.Error)

	// The right code still works afterwards.
	var pair tokenResponse
	status = postJSON(t, baseURL+"/v1/register/verify", map[string]any{
		"identifier":    "frank@example.com",
		"pending_token": start.PendingToken,
		"code":          testModeOTPCode,
	}, &pair)
	require.Equal(t, http.StatusCreated, status)
	assertTokenResponse(t, pair)
}
