package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	httpapi "github.com/aussiebroadwan/twofactor/internal/twofactor/http"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
	"github.com/stretchr/testify/require"
)

var laptop = fingerprint.Signals{
	ScreenWidth:  2560,
	ScreenHeight: 1440,
	Timezone:     "Australia/Sydney",
	Platform:     "macOS",
	Browser:      "Firefox",
}

func TestLogin(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	sess, resp := s.login()
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, int(jwtx.DefaultSessionTTL/time.Second), resp.ExpiresIn)
	require.False(t, resp.TwoFactorRequired)

	_, _, err := s.client.Login(ctx, testEmail, "wrong password")
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidCredentials)

	_, _, err = s.client.Login(ctx, "nobody@example.com", testPassword)
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidCredentials)

	s.enable(sess)
	_, resp = s.login()
	require.True(t, resp.TwoFactorRequired)
}

func TestBearerRequired(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.client.NewSession("").Status(ctx)
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidToken)

	_, err = s.client.NewSession("not-a-jwt").Status(ctx)
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidToken)

	// An expired session is rejected.
	sess, _ := s.login()
	s.clock.Advance(jwtx.DefaultSessionTTL + time.Minute)
	_, err = sess.Status(ctx)
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidToken)
}

func TestSetupAndVerify(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()

	st, err := sess.Status(ctx)
	require.NoError(t, err)
	require.False(t, st.Enabled)
	require.Equal(t, "none", st.Method)

	setup, err := sess.BeginSetup(ctx)
	require.NoError(t, err)
	require.Equal(t, "Acme", setup.Issuer)
	require.Equal(t, testEmail, setup.Account)
	require.Len(t, setup.BackupCodes, 10)
	require.True(t, strings.HasPrefix(setup.ProvisioningURI, "otpauth://totp/Acme:"))

	// Beginning a setup stores nothing.
	st, err = sess.Status(ctx)
	require.NoError(t, err)
	require.False(t, st.Enabled)

	_, err = sess.ConfirmSetup(ctx, setup.SetupToken, s.wrongCode(setup.Secret))
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidCode)

	_, err = sess.ConfirmSetup(ctx, "garbage", s.code(setup.Secret))
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidSetup)

	st, err = sess.ConfirmSetup(ctx, setup.SetupToken, s.code(setup.Secret))
	require.NoError(t, err)
	require.True(t, st.Enabled)
	require.Equal(t, "authenticator", st.Method)
	require.Equal(t, 10, st.BackupCodesRemaining)
	require.NotNil(t, st.EnabledAt)

	_, err = sess.BeginSetup(ctx)
	require.ErrorIs(t, err, twofactorsdk.ErrAlreadyEnabled)

	s.clock.Advance(30 * time.Second)
	res, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: s.code(setup.Secret)})
	require.NoError(t, err)
	require.Equal(t, "authenticator", res.Method)
	require.Equal(t, 10, res.BackupCodesRemaining)
	require.Nil(t, res.Device)

	// The assertion verifies for its own audience and never as a bearer.
	assertionVerifier := jwtx.NewVerifier(jwtx.VerifyOptions{
		Issuers:  []string{testIssuer},
		Audience: []string{service.DefaultAssertionAudience},
		Now:      s.clock.Now,
	}, s.keys)
	claims, err := assertionVerifier.Verify(res.Assertion)
	require.NoError(t, err)
	require.Equal(t, s.userID, claims.Subject)
	require.True(t, claims.HasAMR(jwtx.AMROTP))
	require.Equal(t, "authenticator", claims.SecondFactor)

	_, err = s.client.NewSession(res.Assertion).Status(ctx)
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidToken)

	// A backup code works once.
	res, err = sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: strings.ToLower(setup.BackupCodes[0])})
	require.NoError(t, err)
	require.Equal(t, "backup", res.Method)
	require.Equal(t, 9, res.BackupCodesRemaining)

	_, err = sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: setup.BackupCodes[0]})
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidCode)

	attempts, err := sess.Attempts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, attempts.Attempts, 5)
	require.Equal(t, "backup", attempts.Attempts[0].Method)
	require.False(t, attempts.Attempts[0].Success)
}

func TestVerifyNotEnabled(t *testing.T) {
	s := newServer(t)
	sess, _ := s.login()

	_, err := sess.Verify(context.Background(), twofactorsdk.VerifyRequest{Code: "123456"})
	require.ErrorIs(t, err, twofactorsdk.ErrNotEnabled)
}

func TestVerifyRateLimited(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()
	setup := s.enable(sess)

	for range 5 {
		_, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: s.wrongCode(setup.Secret)})
		require.ErrorIs(t, err, twofactorsdk.ErrInvalidCode)
		s.clock.Advance(time.Minute)
	}

	// Even the right code is refused while locked out.
	_, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: s.code(setup.Secret)})
	require.ErrorIs(t, err, twofactorsdk.ErrRateLimited)

	var apiErr *twofactorsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	// Oldest failure was five minutes ago in a fifteen minute window.
	require.Equal(t, 10*time.Minute, apiErr.RetryAfter)

	s.clock.Advance(10 * time.Minute)
	_, err = sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: s.code(setup.Secret)})
	require.NoError(t, err)
}

func TestRegenerateBackupCodes(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()
	setup := s.enable(sess)

	_, err := sess.RegenerateBackupCodes(ctx, s.wrongCode(setup.Secret))
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidCode)

	codes, err := sess.RegenerateBackupCodes(ctx, s.code(setup.Secret))
	require.NoError(t, err)
	require.Len(t, codes.Codes, 10)

	// Old codes are gone, new ones work.
	_, err = sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: setup.BackupCodes[1]})
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidCode)
	res, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: codes.Codes[0]})
	require.NoError(t, err)
	require.Equal(t, 9, res.BackupCodesRemaining)
}

func TestDisable(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()
	setup := s.enable(sess)

	err := sess.Disable(ctx, "wrong password", s.code(setup.Secret))
	require.ErrorIs(t, err, twofactorsdk.ErrReauthFailed)

	err = sess.Disable(ctx, testPassword, s.wrongCode(setup.Secret))
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidCode)

	require.NoError(t, sess.Disable(ctx, testPassword, s.code(setup.Secret)))

	st, err := sess.Status(ctx)
	require.NoError(t, err)
	require.False(t, st.Enabled)
	require.Zero(t, st.BackupCodesRemaining)

	err = sess.Disable(ctx, testPassword, s.code(setup.Secret))
	require.ErrorIs(t, err, twofactorsdk.ErrNotEnabled)
}

func TestRememberDevice(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()
	setup := s.enable(sess)

	trusted, err := sess.CheckDevice(ctx, laptop)
	require.NoError(t, err)
	require.False(t, trusted)

	// Remembering needs the device signals.
	_, err = sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: s.code(setup.Secret), RememberDevice: true})
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidRequest)

	res, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{
		Code:           s.code(setup.Secret),
		RememberDevice: true,
		DeviceLabel:    "Work laptop",
		Device:         &laptop,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Device)
	require.Equal(t, "Work laptop", res.Device.Label)
	require.True(t, s.clock.Now().Add(service.DefaultTrustDuration).Equal(res.Device.TrustedUntil))

	trusted, err = sess.CheckDevice(ctx, laptop)
	require.NoError(t, err)
	require.True(t, trusted)

	// A different screen is a different device.
	other := laptop
	other.ScreenWidth = 1280
	trusted, err = sess.CheckDevice(ctx, other)
	require.NoError(t, err)
	require.False(t, trusted)

	list, err := sess.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, list.Devices, 1)

	require.NoError(t, sess.RevokeDevice(ctx, list.Devices[0].ID))
	trusted, err = sess.CheckDevice(ctx, laptop)
	require.NoError(t, err)
	require.False(t, trusted)

	err = sess.RevokeDevice(ctx, list.Devices[0].ID)
	require.ErrorIs(t, err, twofactorsdk.ErrNotFound)
	err = sess.RevokeDevice(ctx, "not-an-id")
	require.ErrorIs(t, err, twofactorsdk.ErrNotFound)
}

func TestRevokeAllDevices(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()
	setup := s.enable(sess)

	for _, width := range []int{1280, 1920} {
		d := laptop
		d.ScreenWidth = width
		_, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: s.code(setup.Secret), RememberDevice: true, Device: &d})
		require.NoError(t, err)
	}

	n, err := sess.RevokeAllDevices(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := sess.ListDevices(ctx)
	require.NoError(t, err)
	require.Empty(t, list.Devices)
}

func TestTrustExpires(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()
	setup := s.enable(sess)

	_, err := sess.Verify(ctx, twofactorsdk.VerifyRequest{Code: s.code(setup.Secret), RememberDevice: true, Device: &laptop})
	require.NoError(t, err)

	s.clock.Advance(service.DefaultTrustDuration)
	sess, _ = s.login()
	trusted, err := sess.CheckDevice(ctx, laptop)
	require.NoError(t, err)
	require.False(t, trusted)
}

func TestAttemptsLimit(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()

	_, err := sess.Attempts(ctx, 500)
	require.ErrorIs(t, err, twofactorsdk.ErrInvalidRequest)

	list, err := sess.Attempts(ctx, 0) // default
	require.NoError(t, err)
	require.Empty(t, list.Attempts)
}

func TestStoreUnavailable(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sess, _ := s.login()

	require.NoError(t, s.store.Close())

	_, err := sess.Status(ctx)
	require.ErrorIs(t, err, twofactorsdk.ErrStoreUnavailable)
	var apiErr *twofactorsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 5*time.Second, apiErr.RetryAfter)

	// Trust checks fail closed.
	_, err = sess.CheckDevice(ctx, laptop)
	require.ErrorIs(t, err, twofactorsdk.ErrStoreUnavailable)

	ready, err := s.client.GetReadiness(ctx)
	require.Error(t, err)
	require.Nil(t, ready)
}

func TestMalformedBody(t *testing.T) {
	s := newServer(t)
	sess, _ := s.login()

	for _, body := range []string{`{`, `{"code":"123456","extra":true}`, `{"code":"1"}{"code":"2"}`} {
		req, err := http.NewRequest(http.MethodPost, s.client.BaseURL+"/v1/2fa/verify", bytes.NewBufferString(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken())
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		var apiErr twofactorsdk.APIError
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
		resp.Body.Close()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		require.Equal(t, twofactorsdk.ErrorCodeInvalidRequest, apiErr.Code)
	}
}

func TestSystemEndpoints(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	live, err := s.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := s.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Keys)

	jwks, err := s.client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "EdDSA", jwks.Keys[0].Alg)

	resp, err := http.Get(s.client.BaseURL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestThrottle(t *testing.T) {
	tight := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	s := newServer(t, withLimits(httpapi.Limits{Strict: tight, Moderate: generous, Public: generous}))
	ctx := context.Background()

	for range 2 {
		_, _, err := s.client.Login(ctx, testEmail, "wrong password")
		require.ErrorIs(t, err, twofactorsdk.ErrInvalidCredentials)
	}

	_, _, err := s.client.Login(ctx, testEmail, testPassword)
	var apiErr *twofactorsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "rate_limit_exceeded", apiErr.Code)
	require.Positive(t, apiErr.RetryAfter)
}
