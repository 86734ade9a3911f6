package service

import (
	"io"
	"strings"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/otpx"
)

const (
	backupCodeGroups    = 2
	backupCodeGroupSize = 4
)

// Generator produces fresh secrets and backup codes. It has no side
// effects; Rand is only swapped out in tests.
type Generator struct {
	Rand io.Reader // nil means crypto/rand
}

// GenerateSecret returns a new 160-bit TOTP secret.
func (g Generator) GenerateSecret() (otpx.Secret, error) {
	secret, err := otpx.GenerateSecret(g.Rand)
	if err != nil {
		return nil, domain.E(domain.KindEntropyFailure, "generate_secret", err)
	}
	return secret, nil
}

// GenerateBackupCodes returns count codes formatted XXXX-XXXX.
// A count of zero or less yields domain.BackupCodeCount codes.
func (g Generator) GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		count = domain.BackupCodeCount
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for len(codes) < count {
		raw, err := cryptox.RandomString(g.Rand, cryptox.Alphanumeric, backupCodeGroups*backupCodeGroupSize)
		if err != nil {
			return nil, domain.E(domain.KindEntropyFailure, "generate_backup_codes", err)
		}
		// Duplicates within a set would collapse to one stored digest.
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		codes = append(codes, formatBackupCode(raw))
	}
	return codes, nil
}

func formatBackupCode(raw string) string {
	groups := make([]string, 0, backupCodeGroups)
	for i := 0; i < len(raw); i += backupCodeGroupSize {
		groups = append(groups, raw[i:i+backupCodeGroupSize])
	}
	return strings.Join(groups, "-")
}
