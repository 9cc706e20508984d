package http

import (
	"encoding/json"
	"net/http"

	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/nexhire/nexhire/internal/identity/service"
	"github.com/nexhire/nexhire/pkg/httpx"
)

// RegisterHandler serves the three-step registration flow: start captures
// the lead and sends a code, resend replaces the code, verify consumes it
// and creates the account.
type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

type registerStartRequest struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password,omitempty"`
	Role        string `json:"role"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
}

type registerStartResponse struct {
	PendingToken string `json:"pending_token"`
	Channel      string `json:"channel"`
	SentTo       string `json:"sent_to"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

type registerResendRequest struct {
	Identifier   string `json:"identifier"`
	PendingToken string `json:"pending_token"`
}

type registerVerifyRequest struct {
	Identifier   string `json:"identifier"`
	PendingToken string `json:"pending_token"`
	Code         string `json:"code"`
}

// HandleStart godoc
//
//	@Summary		Start Registration
//	@Description	Captures a registration lead and dispatches a single-use verification code to the given email or phone identifier.
//	@Description	Restarting before verification overwrites the pending lead; only the latest code and pending token stay valid.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerStartRequest	true	"Registration details"
//	@Success		202		{object}	registerStartResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"invalid_identifier, invalid_role, weak_password"
//	@Failure		409		{object}	httpx.ErrorResponse	"already_registered"
//	@Router			/v1/register/start [post].
func (h *RegisterHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req registerStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	result, err := h.RegistrationService.Start(r.Context(), service.StartInput{
		Identifier:  req.Identifier,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
		UTM: domain.UTM{
			Source:   req.UTMSource,
			Medium:   req.UTMMedium,
			Campaign: req.UTMCampaign,
		},
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, registerStartResponse{
		PendingToken: result.PendingToken,
		Channel:      string(result.Channel),
		SentTo:       result.MaskedTo,
		ExpiresIn:    int64(result.ExpiresIn.Seconds()),
	})
}

// HandleResend godoc
//
//	@Summary		Resend Verification Code
//	@Description	Replaces the active verification code for an in-flight registration and resets the attempt counter.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerResendRequest	true	"Identifier and pending token from register/start"
//	@Success		202		{object}	registerStartResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"invalid_identifier, code_not_found"
//	@Router			/v1/register/resend [post].
func (h *RegisterHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req registerResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	result, err := h.RegistrationService.Resend(r.Context(), req.Identifier, req.PendingToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, registerStartResponse{
		PendingToken: result.PendingToken,
		Channel:      string(result.Channel),
		SentTo:       result.MaskedTo,
		ExpiresIn:    int64(result.ExpiresIn.Seconds()),
	})
}

// HandleVerify godoc
//
//	@Summary		Verify Registration
//	@Description	Consumes the verification code, creates the account and returns the first token pair.
//	@Description	The code is single-use: success, expiry and the fifth wrong guess all destroy it.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerVerifyRequest	true	"Identifier, pending token and code"
//	@Success		201		{object}	tokenResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"code_not_found, code_expired, code_mismatch"
//	@Failure		409		{object}	httpx.ErrorResponse	"verification_consumed"
//	@Failure		429		{object}	httpx.ErrorResponse	"too_many_attempts"
//	@Router			/v1/register/verify [post].
func (h *RegisterHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req registerVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	pair, err := h.RegistrationService.Verify(r.Context(), req.Identifier, req.PendingToken, req.Code, r.UserAgent())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newTokenResponse(pair))
}
