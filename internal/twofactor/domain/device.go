package domain

import "time"

// TrustedDevice exempts one device fingerprint of a user from the
// second-factor prompt until TrustedUntil. Revocation deletes the record.
type TrustedDevice struct {
	ID           string
	UserID       string
	Fingerprint  string
	Label        string
	CreatedAt    time.Time
	LastUsedAt   time.Time
	TrustedUntil time.Time
}

// Active reports whether the trust window is still open at now.
func (d TrustedDevice) Active(now time.Time) bool {
	return now.Before(d.TrustedUntil)
}
