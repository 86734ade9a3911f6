package jwtx

import (
	"slices"
	"time"

	"github.com/aussiebroadwan/twofactor/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionTTL is the lifetime of bearer tokens minted by the local
	// password login.
	DefaultSessionTTL = 15 * time.Minute

	// DefaultAssertionTTL is the lifetime of second-factor assertions. They
	// are exchanged by the caller straight after verification.
	DefaultAssertionTTL = 5 * time.Minute
)

// Authentication Methods Reference values (RFC 8176).
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
)

// Claims are the token claims this service reads from bearer tokens and
// writes into its own tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Authentication Methods Reference, e.g. ["pwd"] for a login token and
	// ["otp"] for a second-factor assertion.
	AMR []string `json:"amr,omitempty"`

	Email string `json:"email,omitempty"`

	// SecondFactor names the method that produced an assertion
	// ("authenticator" or "backup").
	SecondFactor string `json:"second_factor,omitempty"`
}

// NewClaims builds minimally-correct claims valid from now for ttl.
func NewClaims(subject, issuer string, audience, amr []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		AMR: amr,
	}
}

// NewJTI returns a unique identifier for the "jti" claim.
func NewJTI() string {
	return idx.New().String()
}

// HasAMR reports whether method is listed in the amr claim.
func (c *Claims) HasAMR(method string) bool {
	return slices.Contains(c.AMR, method)
}

// ValidateIssuer checks the issuer against the accepted set. An empty set
// accepts any issuer.
func (c *Claims) ValidateIssuer(accepted ...string) error {
	if len(accepted) == 0 {
		return nil
	}
	if slices.Contains(accepted, c.Issuer) {
		return nil
	}
	return ErrIssuer
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}
