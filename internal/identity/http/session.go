package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/nexhire/nexhire/internal/identity/service"
	"github.com/nexhire/nexhire/pkg/httpx"
)

// SessionHandler serves login, refresh-token rotation and logout.
type SessionHandler struct {
	SessionService *service.SessionService
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// tokenResponse is the wire form of a token pair. expires_in is seconds
// until the access token expires.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
	}
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Authenticates an email or phone identifier with a password and returns a token pair.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	tokenResponse
//	@Failure		401		{object}	httpx.ErrorResponse	"invalid_credentials"
//	@Failure		403		{object}	httpx.ErrorResponse	"account_disabled"
//	@Router			/v1/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	pair, err := h.SessionService.Login(r.Context(), req.Identifier, req.Password, r.UserAgent())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleRefresh godoc
//
//	@Summary		Refresh Tokens
//	@Description	Rotates a refresh token: the presented token is revoked and a new pair issued atomically.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	tokenResponse
//	@Failure		401		{object}	httpx.ErrorResponse	"invalid_refresh_token"
//	@Router			/v1/token/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.SessionService.Refresh(r.Context(), req.RefreshToken, r.UserAgent())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the presented refresh token and deny-lists the authorizing access token until its natural expiry.
//	@Description	Omitting the refresh token logs out everywhere: every refresh token for the account is revoked.
//	@Description	Idempotent: logging out an already-dead session still returns 200.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	logoutRequest	false	"Refresh token to revoke"
//	@Success		200		"Logged out"
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Router			/v1/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.Body != nil {
		// An empty body is fine; only a malformed one is rejected.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
	}

	claims, ok := httpx.ClaimsFromCtx(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
		return
	}

	if err := h.SessionService.Logout(r.Context(), req.RefreshToken, claims); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
