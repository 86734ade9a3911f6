package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Alphanumeric is the alphabet used for human-typed codes. It is uppercase
// only so codes survive case-insensitive entry.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrEntropy is returned when the random source fails. Callers must abort
// rather than retry with a weaker source.
var ErrEntropy = errors.New("cryptox: random source failed")

// RandomBytes reads exactly n bytes from r. A nil reader means crypto/rand.
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cryptox: byte count must be positive, got %d", n)
	}
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntropy, err)
	}
	return buf, nil
}

// RandomString draws n characters uniformly from alphabet using r.
// A nil reader means crypto/rand.
func RandomString(r io.Reader, alphabet string, n int) (string, error) {
	if alphabet == "" {
		return "", errors.New("cryptox: empty alphabet")
	}
	if r == nil {
		r = rand.Reader
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrEntropy, err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Digest returns the SHA-256 of s as base64url without padding (43 chars).
// Used for values that must be matched later but never read back, such as
// backup codes.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// EqualDigest compares two digests in constant time.
func EqualDigest(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
