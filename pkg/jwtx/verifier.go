package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrUnknownKID = errors.New("jwtx: unknown kid")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
	ErrAudience   = errors.New("jwtx: audience mismatch")
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures what a token must carry to be accepted.
type VerifyOptions struct {
	// Issuers accepted in the iss claim. Empty means any.
	Issuers []string

	// Audience values of which the token must contain at least one. Empty
	// means any.
	Audience []string

	// Leeway allows small clock skew when validating exp and nbf.
	Leeway time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// KeySetVerifier checks signatures against one or more key sets, looked up
// by kid in order. EdDSA, RS256 and ES256 are accepted; the key type must
// match the header alg.
type KeySetVerifier struct {
	sets []*KeySet
	opts VerifyOptions
}

// NewVerifier builds a verifier over sets.
func NewVerifier(opts VerifyOptions, sets ...*KeySet) *KeySetVerifier {
	return &KeySetVerifier{sets: sets, opts: opts}
}

var validMethods = []string{
	jwt.SigningMethodEdDSA.Alg(),
	jwt.SigningMethodRS256.Alg(),
	jwt.SigningMethodES256.Alg(),
}

// Verify parses and validates tokenStr.
func (v *KeySetVerifier) Verify(tokenStr string) (Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.opts.Leeway),
	}
	if v.opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(v.opts.Now))
	}

	var claims Claims
	token, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenStr, &claims, v.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}
	if !token.Valid {
		return Claims{}, errors.New("jwtx: invalid token")
	}

	if err := claims.ValidateIssuer(v.opts.Issuers...); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return Claims{}, err
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("jwtx: missing sub")
	}
	return claims, nil
}

func (v *KeySetVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("jwtx: missing kid")
	}

	var key any
	for _, set := range v.sets {
		if k, err := set.Get(kid); err == nil {
			key = k
			break
		}
	}
	if key == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}

	// Header alg has already been checked against validMethods; pin it to
	// the key type so an RSA key cannot be used for an EdDSA token.
	switch t.Method.Alg() {
	case jwt.SigningMethodEdDSA.Alg():
		if k, ok := key.(ed25519.PublicKey); ok {
			return k, nil
		}
	case jwt.SigningMethodRS256.Alg():
		if k, ok := key.(*rsa.PublicKey); ok {
			return k, nil
		}
	case jwt.SigningMethodES256.Alg():
		if k, ok := key.(*ecdsa.PublicKey); ok {
			return k, nil
		}
	}
	return nil, fmt.Errorf("jwtx: key %q does not match alg %s", kid, t.Method.Alg())
}
