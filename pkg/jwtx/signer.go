package jwtx

import (
	"crypto/ed25519"
	"errors"

	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Signer signs tokens with an Ed25519 key. The kid is derived from the
// public key so a restart with the same key file publishes the same JWKS.
type Signer struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewSigner wraps an Ed25519 private key.
func NewSigner(key ed25519.PrivateKey) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 private key size")
	}
	pub := key.Public().(ed25519.PublicKey)
	return &Signer{kid: cryptox.KeyID(pub), key: key, pub: pub}, nil
}

// NewSignerFromPEM loads a PKCS8 Ed25519 private key.
func NewSignerFromPEM(pemKey []byte) (*Signer, error) {
	key, err := cryptox.ParseEd25519PEM(pemKey)
	if err != nil {
		return nil, err
	}
	return NewSigner(key)
}

func (s *Signer) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *Signer) KID() string { return s.kid }

// Sign turns claims into a compact JWS.
func (s *Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the key to publish at /.well-known/jwks.json.
func (s *Signer) PublicJWK() JWK {
	return NewEd25519JWK(s.kid, s.pub)
}
