package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every error the two-factor service returns to callers.
// The set is closed; callers can switch on it exhaustively.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindInvalidCode covers every rejected code: wrong digits, outside the
	// window, already redeemed. Deliberately a single kind.
	KindInvalidCode
	KindRateLimited
	KindNotEnabled
	KindAlreadyEnabled
	KindReauthenticationFailed
	// KindStoreUnavailable is retryable. It is never turned into
	// KindInvalidCode or into success.
	KindStoreUnavailable
	// KindEntropyFailure is fatal for the operation.
	KindEntropyFailure
	// KindInvalidSetup is an expired, tampered or foreign pending setup.
	KindInvalidSetup
	KindNotFound
)

var kindNames = [...]string{
	KindUnknown:                "unknown",
	KindInvalidCode:            "invalid_code",
	KindRateLimited:            "rate_limited",
	KindNotEnabled:             "not_enabled",
	KindAlreadyEnabled:         "already_enabled",
	KindReauthenticationFailed: "reauthentication_failed",
	KindStoreUnavailable:       "store_unavailable",
	KindEntropyFailure:         "entropy_failure",
	KindInvalidSetup:           "invalid_setup",
	KindNotFound:               "not_found",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Error carries a Kind plus structured context. Two Errors match under
// errors.Is when their kinds are equal, so the sentinels below work with
// errors.Is regardless of Op or cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Decision is set for KindRateLimited.
	Decision *RateLimitDecision
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCode            = &Error{Kind: KindInvalidCode}
	ErrRateLimited            = &Error{Kind: KindRateLimited}
	ErrNotEnabled             = &Error{Kind: KindNotEnabled}
	ErrAlreadyEnabled         = &Error{Kind: KindAlreadyEnabled}
	ErrReauthenticationFailed = &Error{Kind: KindReauthenticationFailed}
	ErrStoreUnavailable       = &Error{Kind: KindStoreUnavailable}
	ErrEntropyFailure         = &Error{Kind: KindEntropyFailure}
	ErrInvalidSetup           = &Error{Kind: KindInvalidSetup}
	ErrNotFound               = &Error{Kind: KindNotFound}
)

// E builds an *Error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
