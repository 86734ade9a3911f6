package domain

import "time"

// AttemptMethod identifies which verifier handled an attempt.
type AttemptMethod string

const (
	AttemptAuthenticator AttemptMethod = "authenticator"
	AttemptBackup        AttemptMethod = "backup"
)

// AttemptRecord is one entry in the append-only audit trail.
type AttemptRecord struct {
	ID            string
	UserID        string
	Method        AttemptMethod
	Success       bool
	ClientContext string // coarse, audit only
	CreatedAt     time.Time
}

// RateLimitDecision is computed from recent failures, never stored.
type RateLimitDecision struct {
	Allowed bool
	// AttemptsRemaining is nil when the backend cannot tell.
	AttemptsRemaining *int
	// RetryAfter is set when Allowed is false.
	RetryAfter time.Duration
}
