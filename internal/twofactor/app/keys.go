package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
)

// Keys bundles every key the service holds.
type Keys struct {
	Sealer *cryptox.Sealer
	Pepper string

	// Signer signs assertions and local bearer tokens; Local publishes it.
	Signer *jwtx.Signer
	Local  *jwtx.KeySet

	// Upstream holds the identity provider's keys, refreshed by Source.
	Upstream *jwtx.KeySet
	Source   *jwtx.Source

	Verifier jwtx.Verifier
}

// InitKeys loads or creates the master key, pepper and assertion key, and
// loads the upstream key set once. A failing upstream fetch is fatal at
// start-up; later refreshes keep the last good set.
func InitKeys(ctx context.Context, cfg Config, logger *slog.Logger) (*Keys, error) {
	master := []byte(cfg.MasterKey)
	if len(master) == 0 {
		var err error
		master, err = cryptox.LoadOrCreateFile(cfg.MasterKeyFile, cryptox.NewRandomKey(32))
		if err != nil {
			return nil, fmt.Errorf("master key: %w", err)
		}
		logger.Info("master key loaded", "path", cfg.MasterKeyFile)
	}
	sealer, err := cryptox.NewSealer(master)
	if err != nil {
		return nil, err
	}

	pepper, err := LoadPepper(cfg)
	if err != nil {
		return nil, err
	}

	pemKey, err := cryptox.LoadOrCreateFile(cfg.AssertionKeyFile, cryptox.GenerateEd25519PEM)
	if err != nil {
		return nil, fmt.Errorf("assertion key: %w", err)
	}
	signer, err := jwtx.NewSignerFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("assertion key: %w", err)
	}
	logger.Info("assertion key loaded", "kid", signer.KID(), "alg", signer.Alg())

	k := &Keys{
		Sealer:   sealer,
		Pepper:   pepper,
		Signer:   signer,
		Local:    jwtx.NewKeySet(),
		Upstream: jwtx.NewKeySet(),
	}
	if err := k.Local.AddSigner(signer); err != nil {
		return nil, err
	}
	k.Source = jwtx.NewSource(cfg.UpstreamJWKSURL, cfg.UpstreamJWKS, k.Upstream)

	if k.Source.Configured() {
		if err := k.Source.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("upstream jwks: %w", err)
		}
		logger.Info("upstream verification keys loaded", "keys", len(k.Upstream.PublicJWKS().Keys))
	}

	k.Verifier = jwtx.NewVerifier(jwtx.VerifyOptions{
		Issuers:  cfg.BearerIssuers(),
		Audience: cfg.BearerAudience(),
		Leeway:   cfg.TokenLeeway,
	}, k.BearerKeySets(cfg)...)

	return k, nil
}

// BearerKeySets are the sets whose keys may sign bearer tokens.
func (k *Keys) BearerKeySets(cfg Config) []*jwtx.KeySet {
	var sets []*jwtx.KeySet
	if cfg.LocalLogin {
		sets = append(sets, k.Local)
	}
	if k.Source.Configured() {
		sets = append(sets, k.Upstream)
	}
	return sets
}

// LoadPepper reads the password pepper, creating it on first use.
func LoadPepper(cfg Config) (string, error) {
	pepper, err := cryptox.LoadOrCreateFile(cfg.PepperFile, cryptox.NewRandomKey(32))
	if err != nil {
		return "", fmt.Errorf("pepper: %w", err)
	}
	return string(pepper), nil
}
