package service

import (
	"strings"
	"unicode"

	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
)

// NormalizeBackupCode strips every non-alphanumeric rune and uppercases
// the rest, so "abcd-1234", "ABCD 1234" and "abcd1234" are the same code.
func NormalizeBackupCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// HashBackupCode returns the digest stored for code.
func HashBackupCode(code string) string {
	return cryptox.Digest(NormalizeBackupCode(code))
}

// HashBackupCodes hashes a freshly generated set, keeping its order.
func HashBackupCodes(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = HashBackupCode(c)
	}
	return out
}

// Redeem checks candidate against the stored digests. On a match it
// returns true and a copy of stored without the matched digest; otherwise
// false and stored unchanged. Every digest is compared in constant time
// and the scan never exits early.
func Redeem(stored []string, candidate string) (bool, []string) {
	idx := matchBackupCode(stored, candidate)
	if idx < 0 {
		return false, stored
	}
	updated := make([]string, 0, len(stored)-1)
	updated = append(updated, stored[:idx]...)
	updated = append(updated, stored[idx+1:]...)
	return true, updated
}

// matchBackupCode returns the index of the digest matching candidate, or -1.
func matchBackupCode(stored []string, candidate string) int {
	norm := NormalizeBackupCode(candidate)
	if norm == "" {
		return -1
	}
	digest := cryptox.Digest(norm)

	idx := -1
	for i, h := range stored {
		if cryptox.EqualDigest(h, digest) && idx < 0 {
			idx = i
		}
	}
	return idx
}
