package http

import (
	"errors"
	"net/http"

	"github.com/nexhire/nexhire/internal/identity/service"
	"github.com/nexhire/nexhire/pkg/httpx"
	"github.com/nexhire/nexhire/pkg/slogx"
)

// writeServiceError maps service sentinel errors onto HTTP status codes with
// the uniform error body. Unknown errors become a 500 and are logged; their
// detail never reaches the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidIdentifier):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_identifier", "identifier must be an email address or E.164 phone number")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "role must be candidate or agent")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", "password must be 8-128 characters with at least one letter and one digit")
	case errors.Is(err, service.ErrAlreadyRegistered):
		httpx.WriteError(w, http.StatusConflict, "already_registered", "an account already exists for this identifier")
	case errors.Is(err, service.ErrVerificationConsumed):
		httpx.WriteError(w, http.StatusConflict, "verification_consumed", "this verification was already completed; log in instead")
	case errors.Is(err, service.ErrCodeNotFound):
		httpx.WriteError(w, http.StatusBadRequest, "code_not_found", "no active verification for this identifier and token")
	case errors.Is(err, service.ErrCodeExpired):
		httpx.WriteError(w, http.StatusBadRequest, "code_expired", "the verification code expired; request a new one")
	case errors.Is(err, service.ErrCodeMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "code_mismatch", "incorrect verification code")
	case errors.Is(err, service.ErrTooManyAttempts):
		httpx.WriteError(w, http.StatusTooManyRequests, "too_many_attempts", "too many incorrect codes; restart registration")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "identifier or password is incorrect")
	case errors.Is(err, service.ErrAccountDisabled):
		httpx.WriteError(w, http.StatusForbidden, "account_disabled", "this account cannot log in")
	case errors.Is(err, service.ErrInvalidRefresh):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "the refresh token is invalid, expired or revoked")
	case errors.Is(err, service.ErrResetTokenInvalid):
		httpx.WriteError(w, http.StatusBadRequest, "reset_token_invalid", "the reset token is invalid or expired")
	case errors.Is(err, service.ErrSamePassword):
		httpx.WriteError(w, http.StatusBadRequest, "same_password", "the new password must differ from the current one")
	case errors.Is(err, service.ErrDeliveryFailed):
		httpx.WriteError(w, http.StatusBadGateway, "delivery_failed", "could not deliver the message; try again later")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "an internal error occurred")
	}
}
