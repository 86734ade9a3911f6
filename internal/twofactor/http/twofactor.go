package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
)

// TwoFactorHandler serves the /v1/2fa endpoints.
type TwoFactorHandler struct {
	TwoFactor   *service.TwoFactorService
	Attempts    *service.AttemptLedger
	Devices     *service.DeviceTrustService
	Users       *service.UserService
	Tokens      *service.TokenService
	SetupTokens SetupTokens
}

// HandleStatus handles GET /v1/2fa
//
//	@Summary		Two-factor status
//	@Description	Reports whether a second factor is enabled and how many backup codes are left.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofactorsdk.StatusResponse
//	@Failure		401	{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		503	{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/2fa [get].
func (h *TwoFactorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserID(r.Context())

	st, err := h.TwoFactor.Status(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, statusResponse(st))
}

// HandleBeginSetup handles POST /v1/2fa/setup
//
//	@Summary		Begin authenticator setup
//	@Description	Generates a secret and backup codes. Nothing is stored until the setup is confirmed.
//	@Description	The secret and backup codes are shown once; the setup token must be sent back to confirm.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofactorsdk.SetupResponse
//	@Failure		401	{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		409	{object}	twofactorsdk.APIError	"Already enabled"
//	@Failure		503	{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/2fa/setup [post].
func (h *TwoFactorHandler) HandleBeginSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserID(ctx)

	pending, err := h.TwoFactor.BeginSetup(ctx, userID, h.accountName(ctx, userID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := h.SetupTokens.Encode(pending)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, twofactorsdk.SetupResponse{
		SetupToken:      token,
		Secret:          pending.Secret,
		ProvisioningURI: pending.ProvisioningURI,
		Issuer:          h.TwoFactor.Issuer,
		Account:         pending.Account,
		BackupCodes:     pending.BackupCodes,
		ExpiresAt:       pending.ExpiresAt,
	})
}

// HandleConfirmSetup handles POST /v1/2fa/setup/confirm
//
//	@Summary		Confirm authenticator setup
//	@Description	Enables the second factor when the code matches the pending secret.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofactorsdk.SetupConfirmRequest	true	"Setup token and code"
//	@Success		200		{object}	twofactorsdk.StatusResponse
//	@Failure		400		{object}	twofactorsdk.APIError	"Incorrect code or invalid setup token"
//	@Failure		401		{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		409		{object}	twofactorsdk.APIError	"Already enabled"
//	@Failure		429		{object}	twofactorsdk.APIError	"Too many failed attempts"
//	@Failure		503		{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/2fa/setup/confirm [post].
func (h *TwoFactorHandler) HandleConfirmSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserID(ctx)

	var req twofactorsdk.SetupConfirmRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		slogx.FromContext(ctx).Warn("failed to parse request", "err", err)
		twofactorsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pending, err := h.SetupTokens.Decode(req.SetupToken, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.TwoFactor.ConfirmSetup(ctx, userID, pending, req.Code, clientContext(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	st, err := h.TwoFactor.Status(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, statusResponse(st))
}

// HandleVerify handles POST /v1/2fa/verify
//
//	@Summary		Verify a login code
//	@Description	Six digits are checked as an authenticator code, anything else as a single-use backup code.
//	@Description	On success returns a signed assertion and, when asked, remembers the device.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofactorsdk.VerifyRequest	true	"Code and optional device"
//	@Success		200		{object}	twofactorsdk.VerifyResponse
//	@Failure		400		{object}	twofactorsdk.APIError	"Incorrect code"
//	@Failure		401		{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		409		{object}	twofactorsdk.APIError	"Not enabled"
//	@Failure		429		{object}	twofactorsdk.APIError	"Too many failed attempts"
//	@Failure		503		{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/2fa/verify [post].
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserID(ctx)

	var req twofactorsdk.VerifyRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		log.Warn("failed to parse request", "err", err)
		twofactorsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.RememberDevice && req.Device == nil {
		twofactorsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.TwoFactor.Verify(ctx, userID, req.Code, clientContext(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// The code is spent at this point, so later failures degrade the
	// response rather than fail it.
	resp := twofactorsdk.VerifyResponse{
		Method:               string(result.Method),
		BackupCodesRemaining: result.BackupCodesRemaining,
	}

	if assertion, ttl, err := h.Tokens.IssueAssertion(userID, result.Method); err != nil {
		log.Error("failed to sign assertion", "err", err)
	} else {
		resp.Assertion = assertion
		resp.AssertionExpiresIn = int(ttl / time.Second)
	}

	if req.RememberDevice {
		fp := fingerprint.Generate(fingerprint.FromRequest(r, *req.Device))
		device, err := h.Devices.IssueTrust(ctx, userID, fp, req.DeviceLabel, 0)
		if err != nil {
			log.Error("failed to remember device", "err", err)
		} else {
			d := deviceResponse(device)
			resp.Device = &d
		}
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRegenerateBackupCodes handles POST /v1/2fa/backup-codes
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces every backup code. Requires a current authenticator or backup code.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofactorsdk.CodeRequest	true	"Current code"
//	@Success		200		{object}	twofactorsdk.BackupCodesResponse	"New backup codes (shown once)"
//	@Failure		400		{object}	twofactorsdk.APIError				"Incorrect code"
//	@Failure		401		{object}	twofactorsdk.APIError				"Invalid or missing access token"
//	@Failure		409		{object}	twofactorsdk.APIError				"Not enabled"
//	@Failure		429		{object}	twofactorsdk.APIError				"Too many failed attempts"
//	@Failure		503		{object}	twofactorsdk.APIError				"Store unavailable"
//	@Router			/v1/2fa/backup-codes [post].
func (h *TwoFactorHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserID(ctx)

	var req twofactorsdk.CodeRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		slogx.FromContext(ctx).Warn("failed to parse request", "err", err)
		twofactorsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	codes, err := h.TwoFactor.RegenerateBackupCodes(ctx, userID, req.Code, clientContext(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofactorsdk.BackupCodesResponse{Codes: codes})
}

// HandleDisable handles DELETE /v1/2fa
//
//	@Summary		Disable two-factor authentication
//	@Description	Requires the account password and a current code. Trusted devices are kept.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	twofactorsdk.DisableRequest	true	"Password and code"
//	@Success		204
//	@Failure		400	{object}	twofactorsdk.APIError	"Incorrect code"
//	@Failure		401	{object}	twofactorsdk.APIError	"Wrong password or invalid access token"
//	@Failure		409	{object}	twofactorsdk.APIError	"Not enabled"
//	@Failure		429	{object}	twofactorsdk.APIError	"Too many failed attempts"
//	@Failure		503	{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/2fa [delete].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserID(ctx)

	var req twofactorsdk.DisableRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		slogx.FromContext(ctx).Warn("failed to parse request", "err", err)
		twofactorsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TwoFactor.Disable(ctx, userID, req.Password, req.Code, clientContext(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAttempts handles GET /v1/2fa/attempts
//
//	@Summary		Recent verification attempts
//	@Description	Audit trail of the caller's code checks, newest first.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries (1-200, default 50)"
//	@Success		200		{object}	twofactorsdk.AttemptListResponse
//	@Failure		400		{object}	twofactorsdk.APIError	"Invalid limit"
//	@Failure		401		{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		503		{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/2fa/attempts [get].
func (h *TwoFactorHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			twofactorsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		limit = n
	}

	recs, err := h.Attempts.History(ctx, httpx.UserID(ctx), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := twofactorsdk.AttemptListResponse{Attempts: make([]twofactorsdk.Attempt, 0, len(recs))}
	for _, a := range recs {
		out.Attempts = append(out.Attempts, twofactorsdk.Attempt{
			ID:        a.ID,
			Method:    string(a.Method),
			Success:   a.Success,
			CreatedAt: a.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// accountName is the label shown in the authenticator app: the email from
// the bearer token, then the local account, then the user id.
func (h *TwoFactorHandler) accountName(ctx context.Context, userID string) string {
	if claims, ok := httpx.ClaimsFrom(ctx); ok && claims.Email != "" {
		return claims.Email
	}
	if h.Users != nil {
		u, err := h.Users.GetUserByID(ctx, userID)
		switch {
		case err == nil:
			return u.Email
		case !errors.Is(err, store.ErrNotFound):
			slogx.FromContext(ctx).Warn("failed to load user for account name", "err", err)
		}
	}
	return userID
}

func statusResponse(st domain.Status) twofactorsdk.StatusResponse {
	return twofactorsdk.StatusResponse{
		Enabled:              st.Enabled,
		Method:               string(st.Method),
		EnabledAt:            st.EnabledAt,
		BackupCodesRemaining: st.BackupCodesRemaining,
	}
}
