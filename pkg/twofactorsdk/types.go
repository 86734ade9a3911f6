package twofactorsdk

import (
	"time"

	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
)

// LoginRequest authenticates a local account.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse battery"`
}

// LoginResponse carries a bearer token for the /v1 endpoints.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in" example:"900"`
	// TwoFactorRequired is set when the account has a second factor and
	// the caller must call verify or present a trusted device.
	TwoFactorRequired bool `json:"two_factor_required"`
}

// StatusResponse summarises the caller's second factor.
type StatusResponse struct {
	Enabled              bool       `json:"enabled"`
	Method               string     `json:"method" example:"authenticator"`
	EnabledAt            *time.Time `json:"enabled_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining" example:"10"`
}

// SetupResponse is everything the user needs to enrol an authenticator.
// Secret and BackupCodes are shown once; SetupToken is handed back on
// confirmation.
type SetupResponse struct {
	SetupToken      string    `json:"setup_token"`
	Secret          string    `json:"secret" example:"JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"`
	ProvisioningURI string    `json:"provisioning_uri" example:"otpauth://totp/Example:alice@example.com?secret=...&issuer=Example"`
	Issuer          string    `json:"issuer" example:"Example"`
	Account         string    `json:"account" example:"alice@example.com"`
	BackupCodes     []string  `json:"backup_codes"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// SetupConfirmRequest completes a setup with a code from the authenticator.
type SetupConfirmRequest struct {
	SetupToken string `json:"setup_token"`
	Code       string `json:"code" example:"123456"`
}

// VerifyRequest checks a login code. Six digits are treated as an
// authenticator code, anything else as a backup code.
type VerifyRequest struct {
	Code string `json:"code" example:"123456"`

	// RememberDevice trusts Device for the configured duration after a
	// successful verification.
	RememberDevice bool                 `json:"remember_device,omitempty"`
	DeviceLabel    string               `json:"device_label,omitempty" example:"Work laptop"`
	Device         *fingerprint.Signals `json:"device,omitempty"`
}

// VerifyResponse is returned on a successful verification.
type VerifyResponse struct {
	Method               string `json:"method" example:"authenticator"`
	BackupCodesRemaining int    `json:"backup_codes_remaining" example:"9"`

	// Assertion is a signed JWT proving the second factor, verifiable
	// against /.well-known/jwks.json.
	Assertion          string `json:"assertion"`
	AssertionExpiresIn int    `json:"assertion_expires_in" example:"300"`

	Device *TrustedDevice `json:"device,omitempty"`
}

// CodeRequest carries a current code for regenerate.
type CodeRequest struct {
	Code string `json:"code" example:"123456"`
}

// BackupCodesResponse holds a fresh backup-code set, shown once.
type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

// DisableRequest requires both the password and a current code.
type DisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code" example:"123456"`
}

// DeviceCheckRequest asks whether the calling device is trusted.
type DeviceCheckRequest struct {
	Device fingerprint.Signals `json:"device"`
}

// DeviceCheckResponse answers DeviceCheckRequest.
type DeviceCheckResponse struct {
	Trusted bool `json:"trusted"`
}

// TrustedDevice is one remembered device.
type TrustedDevice struct {
	ID           string    `json:"id"`
	Label        string    `json:"label" example:"Work laptop"`
	CreatedAt    time.Time `json:"created_at"`
	LastUsedAt   time.Time `json:"last_used_at"`
	TrustedUntil time.Time `json:"trusted_until"`
}

// DeviceListResponse lists the caller's trusted devices.
type DeviceListResponse struct {
	Devices []TrustedDevice `json:"devices"`
}

// RevokeAllResponse reports how many devices were revoked.
type RevokeAllResponse struct {
	Revoked int `json:"revoked"`
}

// Attempt is one entry of the verification audit trail.
type Attempt struct {
	ID        string    `json:"id"`
	Method    string    `json:"method" example:"authenticator"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptListResponse holds the most recent attempts, newest first.
type AttemptListResponse struct {
	Attempts []Attempt `json:"attempts"`
}

// HealthChecks is the per-dependency status in a readiness response.
type HealthChecks struct {
	Database string `json:"database"`
	Keys     string `json:"keys"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime" example:"1h2m3s"`
	Version string        `json:"version" example:"v0.1.0"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// JWKSResponse is the published key set.
type JWKSResponse jwtx.JWKS
