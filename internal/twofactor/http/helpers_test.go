package http_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	httpapi "github.com/aussiebroadwan/twofactor/internal/twofactor/http"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store/drivers/sqlite"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
	"github.com/aussiebroadwan/twofactor/pkg/otpx"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "correct horse battery"
	testIssuer   = "twofactor-test"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var generous = httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}

type server struct {
	t      *testing.T
	clock  *fakeClock
	store  *sqlite.Store
	keys   *jwtx.KeySet
	client *twofactorsdk.Client
	userID string
}

type option func(*httpapi.Router)

func withLimits(l httpapi.Limits) option {
	return func(r *httpapi.Router) { r.Limits = l }
}

func newServer(t *testing.T, opts ...option) *server {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
	logger := slogx.Discard()

	sealer, err := cryptox.NewSealer([]byte("test master key"))
	require.NoError(t, err)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := jwtx.NewSigner(priv)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	users := &service.UserService{Store: st, Hasher: cryptox.PasswordHasher{Pepper: "test"}, Now: clock.Now}
	user, err := users.CreateUser(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	ledger := &service.AttemptLedger{
		Store:  st,
		Logger: logger,
		Policy: service.RateLimitPolicy{MaxFailures: 5, Window: 15 * time.Minute},
		Now:    clock.Now,
	}
	devices := &service.DeviceTrustService{Store: st, Logger: logger, Now: clock.Now}

	router := httpapi.NewRouter(keys,
		jwtx.NewVerifier(jwtx.VerifyOptions{
			Issuers:  []string{testIssuer},
			Audience: []string{testIssuer},
			Now:      clock.Now,
		}, keys),
		"test", st, logger,
	)
	router.UserService = users
	router.AttemptLedger = ledger
	router.DeviceService = devices
	router.TwoFactorService = &service.TwoFactorService{
		Store:     st,
		Sealer:    sealer,
		Attempts:  ledger,
		Passwords: users,
		Logger:    logger,
		Issuer:    "Acme",
		Window:    otpx.DefaultWindow,
		SetupTTL:  10 * time.Minute,
		Now:       clock.Now,
	}
	router.TokenService = &service.TokenService{
		Signer:            signer,
		Issuer:            testIssuer,
		AssertionAudience: []string{service.DefaultAssertionAudience},
		Now:               clock.Now,
	}
	router.SetupTokens = httpapi.SetupTokens{Sealer: sealer}
	router.Limits = httpapi.Limits{Strict: generous, Moderate: generous, Public: generous}
	for _, o := range opts {
		o(router)
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &server{
		t:      t,
		clock:  clock,
		store:  st,
		keys:   keys,
		client: twofactorsdk.NewClient(srv.URL),
		userID: user.ID,
	}
}

func (s *server) login() (*twofactorsdk.Session, *twofactorsdk.LoginResponse) {
	s.t.Helper()
	sess, resp, err := s.client.Login(context.Background(), testEmail, testPassword)
	require.NoError(s.t, err)
	return sess, resp
}

// enable runs a full setup and returns the setup response, which carries
// the secret and the plaintext backup codes.
func (s *server) enable(sess *twofactorsdk.Session) *twofactorsdk.SetupResponse {
	s.t.Helper()
	ctx := context.Background()

	setup, err := sess.BeginSetup(ctx)
	require.NoError(s.t, err)
	_, err = sess.ConfirmSetup(ctx, setup.SetupToken, s.code(setup.Secret))
	require.NoError(s.t, err)
	return setup
}

func (s *server) code(secret string) string {
	s.t.Helper()
	sec, err := otpx.ParseSecret(secret)
	require.NoError(s.t, err)
	code, err := otpx.Compute(sec, s.clock.Now())
	require.NoError(s.t, err)
	return code
}

func (s *server) wrongCode(secret string) string {
	s.t.Helper()
	sec, err := otpx.ParseSecret(secret)
	require.NoError(s.t, err)
	code, err := otpx.Compute(sec, s.clock.Now().Add(time.Hour))
	require.NoError(s.t, err)
	return code
}
