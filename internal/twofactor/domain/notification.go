package domain

import "time"

// Event names a security-relevant change the user is told about.
type Event string

const (
	EventEnabled            Event = "two_factor_enabled"
	EventDisabled           Event = "two_factor_disabled"
	EventBackupCodesRenewed Event = "backup_codes_regenerated"
)

// Notification is handed to the dispatcher after a state change commits.
type Notification struct {
	Event      Event
	UserID     string
	Account    string
	OccurredAt time.Time
}
