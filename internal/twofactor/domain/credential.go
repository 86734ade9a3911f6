package domain

import (
	"errors"
	"time"
)

// Method is the second factor a user has enrolled.
type Method string

const (
	MethodNone          Method = "none"
	MethodAuthenticator Method = "authenticator"
)

// BackupCodeCount is the size of every issued backup-code set.
const BackupCodeCount = 10

// Credential is the persisted second-factor state of one user.
//
// Invariant: Method != MethodNone iff SealedSecret is set iff EnabledAt is
// set. Backup codes exist only while enabled. BackupCodes holds digests,
// never the codes themselves.
type Credential struct {
	UserID       string
	Method       Method
	SealedSecret []byte // AES-GCM sealed base32 secret, bound to UserID
	BackupCodes  []string
	EnabledAt    *time.Time
	UpdatedAt    time.Time
}

var errCredentialInvariant = errors.New("domain: credential fields inconsistent")

// Enabled reports whether the credential is active.
func (c Credential) Enabled() bool {
	return c.Method != MethodNone && c.Method != ""
}

// Validate checks the all-or-nothing invariant.
func (c Credential) Validate() error {
	enabled := c.Enabled()
	if enabled != (len(c.SealedSecret) > 0) || enabled != (c.EnabledAt != nil) {
		return errCredentialInvariant
	}
	if !enabled && len(c.BackupCodes) > 0 {
		return errCredentialInvariant
	}
	return nil
}

// DisabledCredential is the empty state for userID.
func DisabledCredential(userID string) Credential {
	return Credential{UserID: userID, Method: MethodNone}
}

// PendingSetup is the state between "setup started" and "setup confirmed".
// It is never stored server side: the caller holds it and hands it back on
// confirmation.
type PendingSetup struct {
	UserID          string    `json:"uid"`
	Account         string    `json:"acct"`
	Secret          string    `json:"sec"` // base32
	ProvisioningURI string    `json:"uri"`
	BackupCodes     []string  `json:"codes"` // plaintext, shown once
	ExpiresAt       time.Time `json:"exp"`
}

// Expired reports whether the setup window has closed.
func (p PendingSetup) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// Status is the user-facing summary of a credential.
type Status struct {
	Enabled              bool
	Method               Method
	EnabledAt            *time.Time
	BackupCodesRemaining int
}
