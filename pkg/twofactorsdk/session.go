package twofactorsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
)

// Status returns the caller's second-factor status.
func (s *Session) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := s.do(ctx, http.MethodGet, "/v1/2fa", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// BeginSetup starts enrolment. Nothing is stored until ConfirmSetup.
func (s *Session) BeginSetup(ctx context.Context) (*SetupResponse, error) {
	var out SetupResponse
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/setup", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmSetup enables the second factor.
func (s *Session) ConfirmSetup(ctx context.Context, setupToken, code string) (*StatusResponse, error) {
	var out StatusResponse
	req := SetupConfirmRequest{SetupToken: setupToken, Code: code}
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/setup/confirm", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks a login code.
func (s *Session) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/verify", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegenerateBackupCodes replaces the backup-code set.
func (s *Session) RegenerateBackupCodes(ctx context.Context, code string) (*BackupCodesResponse, error) {
	var out BackupCodesResponse
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/backup-codes", CodeRequest{Code: code}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Disable turns the second factor off.
func (s *Session) Disable(ctx context.Context, password, code string) error {
	return s.do(ctx, http.MethodDelete, "/v1/2fa", DisableRequest{Password: password, Code: code}, nil, http.StatusNoContent)
}

// Attempts lists recent verification attempts, newest first.
func (s *Session) Attempts(ctx context.Context, limit int) (*AttemptListResponse, error) {
	path := "/v1/2fa/attempts"
	if limit > 0 {
		path += "?" + url.Values{"limit": {fmt.Sprint(limit)}}.Encode()
	}
	var out AttemptListResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckDevice reports whether the device is trusted and the prompt can be
// skipped.
func (s *Session) CheckDevice(ctx context.Context, device fingerprint.Signals) (bool, error) {
	var out DeviceCheckResponse
	if err := s.do(ctx, http.MethodPost, "/v1/devices/check", DeviceCheckRequest{Device: device}, &out, http.StatusOK); err != nil {
		return false, err
	}
	return out.Trusted, nil
}

// ListDevices lists the caller's trusted devices.
func (s *Session) ListDevices(ctx context.Context) (*DeviceListResponse, error) {
	var out DeviceListResponse
	if err := s.do(ctx, http.MethodGet, "/v1/devices", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeDevice revokes one trusted device.
func (s *Session) RevokeDevice(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/v1/devices/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// RevokeAllDevices revokes every trusted device.
func (s *Session) RevokeAllDevices(ctx context.Context) (int, error) {
	var out RevokeAllResponse
	if err := s.do(ctx, http.MethodDelete, "/v1/devices", nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}
