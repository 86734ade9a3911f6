// Package otpx computes and validates RFC 6238 time-based one-time passwords
// with the parameters every mainstream authenticator app understands:
// HMAC-SHA1, 6 digits, 30 second steps.
//
// All functions are pure. Given the same secret and time they return the same
// result, which is what the tests rely on.
package otpx

import (
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the time step in seconds.
	Period = 30
	// Digits is the code length.
	Digits = 6
	// SecretSize is the secret length in bytes (160 bits, the HMAC-SHA1 block
	// size recommended by RFC 4226).
	SecretSize = 20
	// DefaultWindow accepts the previous and next step to tolerate drift
	// between the server clock and the authenticator.
	DefaultWindow = 1
	// Algorithm is the name published in provisioning URIs.
	Algorithm = "SHA1"
)

// ErrInvalidSecret is returned when a secret is not valid base32 or has the
// wrong length.
var ErrInvalidSecret = errors.New("otpx: invalid secret")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Secret is the raw shared key.
type Secret []byte

// String returns the unpadded base32 form shown to users and embedded in the
// provisioning URI.
func (s Secret) String() string {
	return b32.EncodeToString(s)
}

// GenerateSecret reads SecretSize bytes from r (crypto/rand when nil).
// A failing reader yields an error wrapping cryptox.ErrEntropy.
func GenerateSecret(r io.Reader) (Secret, error) {
	buf, err := cryptox.RandomBytes(r, SecretSize)
	if err != nil {
		return nil, err
	}
	return Secret(buf), nil
}

// ParseSecret decodes the base32 form, tolerating lowercase, spaces and
// padding as typed or copied by users.
func ParseSecret(s string) (Secret, error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	s = strings.TrimRight(s, "=")

	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}
	if len(raw) == 0 {
		return nil, ErrInvalidSecret
	}
	return Secret(raw), nil
}

func opts(window uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Compute returns the zero-padded code for the step containing t.
func Compute(secret Secret, t time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrInvalidSecret
	}
	code, err := totp.GenerateCodeCustom(secret.String(), t, opts(0))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}
	return code, nil
}

// Validate reports whether candidate matches the code at t or at any step
// within +/- window. Candidates with grouping spaces ("123 456") are
// accepted; anything that is not six digits is simply not a match.
func Validate(secret Secret, candidate string, t time.Time, window uint) (bool, error) {
	if len(secret) == 0 {
		return false, ErrInvalidSecret
	}

	candidate = strings.Join(strings.Fields(candidate), "")
	if !isDigits(candidate, Digits) {
		return false, nil
	}

	ok, err := totp.ValidateCustom(candidate, secret.String(), t, opts(window))
	switch {
	case errors.Is(err, otp.ErrValidateInputInvalidLength):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}
	return ok, nil
}

// ProvisioningURI builds the otpauth key URI. Parameter order is fixed:
// secret, issuer, algorithm, digits, period.
func ProvisioningURI(issuer, account string, secret Secret) string {
	label := escape(account)
	if issuer != "" {
		label = escape(issuer) + ":" + label
	}

	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(label)
	b.WriteString("?secret=")
	b.WriteString(secret.String())
	if issuer != "" {
		b.WriteString("&issuer=")
		b.WriteString(escape(issuer))
	}
	fmt.Fprintf(&b, "&algorithm=%s&digits=%d&period=%d", Algorithm, Digits, Period)
	return b.String()
}

// escape percent-encodes spaces as %20, which authenticator apps expect
// instead of "+".
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
