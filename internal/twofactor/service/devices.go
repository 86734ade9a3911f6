package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/pkg/idx"
)

const (
	// DefaultTrustDuration applies when IssueTrust gets no duration.
	DefaultTrustDuration = 30 * 24 * time.Hour
	maxDeviceLabel       = 100
)

var errEmptyFingerprint = errors.New("empty fingerprint")

// DeviceTrustService manages "remember this device" grants. Trust is only
// a convenience: every check fails closed.
type DeviceTrustService struct {
	Store           store.Store
	Logger          *slog.Logger
	DefaultDuration time.Duration
	StoreTimeout    time.Duration
	Now             func() time.Time
}

// IssueTrust records that fingerprint may skip the second factor until
// now+duration. Callers only invoke it right after a successful
// verification the user opted into. Re-issuing for a known fingerprint
// refreshes the existing grant.
func (s *DeviceTrustService) IssueTrust(ctx context.Context, userID, fingerprint, label string, duration time.Duration) (domain.TrustedDevice, error) {
	const op = "issue_trust"
	if fingerprint == "" {
		return domain.TrustedDevice{}, domain.E(domain.KindInvalidSetup, op, errEmptyFingerprint)
	}
	if duration <= 0 {
		duration = s.DefaultDuration
	}
	if duration <= 0 {
		duration = DefaultTrustDuration
	}

	now := nowFunc(s.Now).Truncate(time.Millisecond)
	d := domain.TrustedDevice{
		ID:           idx.NewAt(now).String(),
		UserID:       userID,
		Fingerprint:  fingerprint,
		Label:        cleanLabel(label),
		CreatedAt:    now,
		LastUsedAt:   now,
		TrustedUntil: now.Add(duration),
	}

	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	stored, err := s.Store.TrustedDevices().UpsertTrustedDevice(sctx, d)
	if err != nil {
		return domain.TrustedDevice{}, unavailable(op, err)
	}

	s.logger().InfoContext(ctx, "device trusted",
		"user_id", userID, "device_id", stored.ID, "trusted_until", stored.TrustedUntil)
	return stored, nil
}

// IsTrusted reports whether fingerprint holds an unexpired grant and, if
// so, refreshes its last use. Any store error yields false together with
// a StoreUnavailable error.
func (s *DeviceTrustService) IsTrusted(ctx context.Context, userID, fingerprint string) (bool, error) {
	const op = "is_trusted"
	if fingerprint == "" {
		return false, nil
	}
	now := nowFunc(s.Now)

	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	d, err := s.Store.TrustedDevices().GetTrustedDevice(sctx, userID, fingerprint)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case err != nil:
		return false, unavailable(op, err)
	}
	if !d.Active(now) {
		return false, nil
	}

	if err := s.Store.TrustedDevices().TouchTrustedDevice(sctx, d.ID, now); err != nil {
		s.logger().WarnContext(ctx, "failed to refresh trusted device last use",
			"user_id", userID, "device_id", d.ID, "error", err)
	}
	return true, nil
}

// Revoke deletes one grant of userID. Unknown or foreign ids are NotFound.
func (s *DeviceTrustService) Revoke(ctx context.Context, userID, deviceID string) error {
	const op = "revoke_device"
	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	err := s.Store.TrustedDevices().DeleteTrustedDevice(sctx, userID, deviceID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.E(domain.KindNotFound, op, fmt.Errorf("device %q", deviceID))
	case err != nil:
		return unavailable(op, err)
	}
	s.logger().InfoContext(ctx, "trusted device revoked", "user_id", userID, "device_id", deviceID)
	return nil
}

// RevokeAll deletes every grant of userID and returns how many existed.
func (s *DeviceTrustService) RevokeAll(ctx context.Context, userID string) (int, error) {
	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	n, err := s.Store.TrustedDevices().DeleteAllTrustedDevices(sctx, userID)
	if err != nil {
		return 0, unavailable("revoke_all_devices", err)
	}
	s.logger().InfoContext(ctx, "all trusted devices revoked", "user_id", userID, "count", n)
	return n, nil
}

// List returns every grant of userID, expired ones included until
// housekeeping removes them.
func (s *DeviceTrustService) List(ctx context.Context, userID string) ([]domain.TrustedDevice, error) {
	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	devices, err := s.Store.TrustedDevices().ListTrustedDevices(sctx, userID)
	if err != nil {
		return nil, unavailable("list_devices", err)
	}
	return devices, nil
}

// PurgeExpired deletes grants whose trust window has closed.
func (s *DeviceTrustService) PurgeExpired(ctx context.Context) (int, error) {
	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	n, err := s.Store.TrustedDevices().DeleteExpiredTrustedDevices(sctx, nowFunc(s.Now))
	if err != nil {
		return 0, unavailable("purge_devices", err)
	}
	return n, nil
}

func (s *DeviceTrustService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func cleanLabel(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if utf8.RuneCountInString(label) <= maxDeviceLabel {
		return label
	}
	r := []rune(label)
	return string(r[:maxDeviceLabel])
}
