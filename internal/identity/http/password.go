package http

import (
	"encoding/json"
	"net/http"

	"github.com/nexhire/nexhire/internal/identity/service"
	"github.com/nexhire/nexhire/pkg/httpx"
)

// PasswordHandler serves the recovery surface: forgot, reset and change.
type PasswordHandler struct {
	RecoveryService *service.RecoveryService
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleForgot godoc
//
//	@Summary		Request Password Reset
//	@Description	Dispatches a reset link to the given email when an account exists for it.
//	@Description	Always returns 202 so the endpoint cannot be used to probe which addresses have accounts.
//	@Tags			Recovery
//	@Accept			json
//	@Produce		json
//	@Param			request	body	forgotPasswordRequest	true	"Account email"
//	@Success		202		"Accepted"
//	@Router			/v1/password/forgot [post].
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := h.RecoveryService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("{}"))
}

// HandleReset godoc
//
//	@Summary		Reset Password
//	@Description	Consumes a reset token and installs the new password. Every refresh token for the account is revoked.
//	@Tags			Recovery
//	@Accept			json
//	@Produce		json
//	@Param			request	body	resetPasswordRequest	true	"Reset token and new password"
//	@Success		200		"Password updated"
//	@Failure		400		{object}	httpx.ErrorResponse	"reset_token_invalid, weak_password, same_password"
//	@Router			/v1/password/reset [post].
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := h.RecoveryService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}

// HandleChange godoc
//
//	@Summary		Change Password
//	@Description	Rotates the authenticated account's password. The current password must be presented; other sessions are logged out.
//	@Tags			Recovery
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	changePasswordRequest	true	"Current and new password"
//	@Success		200		"Password updated"
//	@Failure		400		{object}	httpx.ErrorResponse	"weak_password, same_password"
//	@Failure		401		{object}	httpx.ErrorResponse	"invalid_credentials"
//	@Router			/v1/password/change [post].
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	accountID := httpx.AccountIDFromCtx(r.Context())
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
		return
	}

	if err := h.RecoveryService.ChangePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
