package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
)

// LoginHandler is the local primary authenticator.
type LoginHandler struct {
	Users     *service.UserService
	Tokens    *service.TokenService
	TwoFactor *service.TwoFactorService
}

// ServeHTTP handles POST /v1/login
//
//	@Summary		Password login
//	@Description	Authenticates a local account and returns a bearer token for the /v1 endpoints.
//	@Description	two_factor_required tells the caller to verify a code or check a trusted device next.
//	@Tags			Login
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofactorsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	twofactorsdk.LoginResponse
//	@Failure		400		{object}	twofactorsdk.APIError	"Malformed request"
//	@Failure		401		{object}	twofactorsdk.APIError	"Invalid credentials"
//	@Failure		503		{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req twofactorsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		log.Warn("failed to parse request", "err", err)
		twofactorsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPassword) {
			log.Info("login failed")
			twofactorsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login lookup failed", "err", err)
		twofactorsdk.ErrStoreUnavailable.WithRetryAfter(storeRetryAfter).WriteError(w)
		return
	}

	// Fail closed: without a status the caller is told a code is needed.
	required := true
	if st, err := h.TwoFactor.Status(ctx, user.ID); err == nil {
		required = st.Enabled
	} else {
		log.Warn("two-factor status unavailable at login", "user_id", user.ID, "err", err)
	}

	token, ttl, err := h.Tokens.IssueSession(user)
	if err != nil {
		log.Error("failed to sign session", "err", err)
		twofactorsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("login succeeded", "user_id", user.ID, "two_factor_required", required)
	httpx.WriteJSON(w, http.StatusOK, twofactorsdk.LoginResponse{
		AccessToken:       token,
		TokenType:         "Bearer",
		ExpiresIn:         int(ttl / time.Second),
		TwoFactorRequired: required,
	})
}
