package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
)

const setupTokenContext = "setup:"

// SetupTokens carries a PendingSetup to the client and back, sealed so it
// can be neither read nor altered nor replayed by another user. Nothing
// about a setup is stored server side.
type SetupTokens struct {
	Sealer *cryptox.Sealer
}

// Encode seals p for p.UserID.
func (t SetupTokens) Encode(p domain.PendingSetup) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode setup: %w", err)
	}
	sealed, err := t.Sealer.Seal(raw, setupTokenContext+p.UserID)
	if err != nil {
		return "", domain.E(domain.KindEntropyFailure, "encode_setup", err)
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens token for userID. Every failure is KindInvalidSetup; expiry
// is checked by the service on confirmation.
func (t SetupTokens) Decode(token, userID string) (domain.PendingSetup, error) {
	const op = "decode_setup"
	if token == "" {
		return domain.PendingSetup{}, domain.E(domain.KindInvalidSetup, op, errors.New("empty setup token"))
	}

	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return domain.PendingSetup{}, domain.E(domain.KindInvalidSetup, op, err)
	}
	raw, err := t.Sealer.Open(sealed, setupTokenContext+userID)
	if err != nil {
		return domain.PendingSetup{}, domain.E(domain.KindInvalidSetup, op, err)
	}

	var p domain.PendingSetup
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.PendingSetup{}, domain.E(domain.KindInvalidSetup, op, err)
	}
	return p, nil
}
