package http

import (
	"net/http"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/idx"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
)

// DevicesHandler serves the /v1/devices endpoints.
type DevicesHandler struct {
	Devices *service.DeviceTrustService
}

// HandleCheck handles POST /v1/devices/check
//
//	@Summary		Check device trust
//	@Description	Reports whether the calling device may skip the second-factor prompt.
//	@Description	Store failures answer 503, never "trusted".
//	@Tags			Devices
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofactorsdk.DeviceCheckRequest	true	"Device signals"
//	@Success		200		{object}	twofactorsdk.DeviceCheckResponse
//	@Failure		400		{object}	twofactorsdk.APIError	"Malformed request"
//	@Failure		401		{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		503		{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/devices/check [post].
func (h *DevicesHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req twofactorsdk.DeviceCheckRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		slogx.FromContext(ctx).Warn("failed to parse request", "err", err)
		twofactorsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	fp := fingerprint.Generate(fingerprint.FromRequest(r, req.Device))
	trusted, err := h.Devices.IsTrusted(ctx, httpx.UserID(ctx), fp)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofactorsdk.DeviceCheckResponse{Trusted: trusted})
}

// HandleList handles GET /v1/devices
//
//	@Summary		List trusted devices
//	@Tags			Devices
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofactorsdk.DeviceListResponse
//	@Failure		401	{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		503	{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/devices [get].
func (h *DevicesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	devices, err := h.Devices.List(ctx, httpx.UserID(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := twofactorsdk.DeviceListResponse{Devices: make([]twofactorsdk.TrustedDevice, 0, len(devices))}
	for _, d := range devices {
		out.Devices = append(out.Devices, deviceResponse(d))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke handles DELETE /v1/devices/{id}
//
//	@Summary		Revoke a trusted device
//	@Tags			Devices
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Device ID"
//	@Success		204
//	@Failure		401	{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		404	{object}	twofactorsdk.APIError	"Unknown device"
//	@Failure		503	{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/devices/{id} [delete].
func (h *DevicesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		twofactorsdk.ErrNotFound.WriteError(w)
		return
	}

	if err := h.Devices.Revoke(ctx, httpx.UserID(ctx), id.String()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeAll handles DELETE /v1/devices
//
//	@Summary		Revoke every trusted device
//	@Tags			Devices
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofactorsdk.RevokeAllResponse
//	@Failure		401	{object}	twofactorsdk.APIError	"Invalid or missing access token"
//	@Failure		503	{object}	twofactorsdk.APIError	"Store unavailable"
//	@Router			/v1/devices [delete].
func (h *DevicesHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.Devices.RevokeAll(ctx, httpx.UserID(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofactorsdk.RevokeAllResponse{Revoked: n})
}

func deviceResponse(d domain.TrustedDevice) twofactorsdk.TrustedDevice {
	return twofactorsdk.TrustedDevice{
		ID:           d.ID,
		Label:        d.Label,
		CreatedAt:    d.CreatedAt,
		LastUsedAt:   d.LastUsedAt,
		TrustedUntil: d.TrustedUntil,
	}
}
