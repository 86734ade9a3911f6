package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
	"github.com/stretchr/testify/require"
)

var laptop = fingerprint.Generate(fingerprint.Signals{
	ScreenWidth: 1440, ScreenHeight: 900, Timezone: "Australia/Sydney", Platform: "MacIntel", Browser: "Firefox/121.0",
})

func TestDeviceTrust_IssueAndExpire(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d, err := e.devices.IssueTrust(ctx, testUser, laptop, "  Jane's   laptop ", 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, "Jane's laptop", d.Label)
	require.Equal(t, e.clock.Now().Add(24*time.Hour), d.TrustedUntil)

	ok, err := e.devices.IsTrusted(ctx, testUser, laptop)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.devices.IsTrusted(ctx, "another-user", laptop)
	require.NoError(t, err)
	require.False(t, ok, "trust is per user")

	e.clock.Advance(24 * time.Hour)
	ok, err = e.devices.IsTrusted(ctx, testUser, laptop)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := e.devices.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDeviceTrust_IsTrustedRefreshesLastUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.devices.IssueTrust(ctx, testUser, laptop, "", 0)
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	ok, err := e.devices.IsTrusted(ctx, testUser, laptop)
	require.NoError(t, err)
	require.True(t, ok)

	list, err := e.devices.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, e.clock.Now(), list[0].LastUsedAt)
}

func TestDeviceTrust_ReissueRefreshes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.devices.IssueTrust(ctx, testUser, laptop, "old", time.Hour)
	require.NoError(t, err)

	e.clock.Advance(30 * time.Minute)
	second, err := e.devices.IssueTrust(ctx, testUser, laptop, "new", time.Hour)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "new", second.Label)
	require.Equal(t, e.clock.Now().Add(time.Hour), second.TrustedUntil)
}

func TestDeviceTrust_Revoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d, err := e.devices.IssueTrust(ctx, testUser, laptop, "", time.Hour)
	require.NoError(t, err)
	_, err = e.devices.IssueTrust(ctx, testUser, "phone", "", time.Hour)
	require.NoError(t, err)

	require.ErrorIs(t, e.devices.Revoke(ctx, "another-user", d.ID), domain.ErrNotFound)

	require.NoError(t, e.devices.Revoke(ctx, testUser, d.ID))
	ok, err := e.devices.IsTrusted(ctx, testUser, laptop)
	require.NoError(t, err)
	require.False(t, ok, "revocation is immediate")

	n, err := e.devices.RevokeAll(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ok, err = e.devices.IsTrusted(ctx, testUser, "phone")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeviceTrust_FailsClosed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.devices.IssueTrust(ctx, testUser, laptop, "", time.Hour)
	require.NoError(t, err)
	require.NoError(t, e.store.Close())

	ok, err := e.devices.IsTrusted(ctx, testUser, laptop)
	require.False(t, ok)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestDeviceTrust_LabelIsCapped(t *testing.T) {
	e := newEnv(t)
	d, err := e.devices.IssueTrust(context.Background(), testUser, laptop, strings.Repeat("é", 300), time.Hour)
	require.NoError(t, err)
	require.Equal(t, 100, len([]rune(d.Label)))

	_, err = e.devices.IssueTrust(context.Background(), testUser, "", "", time.Hour)
	require.Error(t, err)
}
