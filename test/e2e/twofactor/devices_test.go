package twofactor_test

import (
	"testing"

	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
	"github.com/stretchr/testify/require"
)

func TestRememberedDevice(t *testing.T) {
	svc := setupContainer(t, relaxedLimits)
	ctx := t.Context()

	sess, _ := svc.login(t, "carol@example.com")
	setup := enable(t, sess)

	phone := fingerprint.Signals{ScreenWidth: 390, ScreenHeight: 844, Timezone: "Australia/Perth", Platform: "iOS", Browser: "Safari"}

	trusted, err := sess.CheckDevice(ctx, phone)
	require.NoError(t, err)
	require.False(t, trusted)

	res, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{
		Code:           totpCode(t, setup.Secret),
		RememberDevice: true,
		DeviceLabel:    "Carol's phone",
		Device:         &phone,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Device)

	// A fresh login on the same device can skip the prompt.
	sess, login, err := svc.client.Login(ctx, "carol@example.com", testPassword)
	require.NoError(t, err)
	require.True(t, login.TwoFactorRequired)
	trusted, err = sess.CheckDevice(ctx, phone)
	require.NoError(t, err)
	require.True(t, trusted)

	devices, err := sess.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices.Devices, 1)
	require.Equal(t, "Carol's phone", devices.Devices[0].Label)

	// Disabling the second factor keeps remembered devices.
	require.NoError(t, sess.Disable(ctx, testPassword, totpCode(t, setup.Secret)))
	devices, err = sess.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices.Devices, 1)

	n, err := sess.RevokeAllDevices(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	trusted, err = sess.CheckDevice(ctx, phone)
	require.NoError(t, err)
	require.False(t, trusted)
}
