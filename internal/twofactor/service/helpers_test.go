package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store/drivers/sqlite"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/otpx"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
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

type passwords map[string]string

func (p passwords) VerifyPassword(_ context.Context, userID, password string) (bool, error) {
	return p[userID] == password, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, note.Event)
}

func (n *recordingNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.events...)
}

type env struct {
	store    *sqlite.Store
	clock    *fakeClock
	ledger   *service.AttemptLedger
	devices  *service.DeviceTrustService
	svc      *service.TwoFactorService
	notifier *recordingNotifier
}

const (
	testUser     = "01JNX5T9Q6K4ZB2Y8V7W3M1C0D"
	testPassword = "correct horse battery"
)

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sealer, err := cryptox.NewSealer([]byte("test master key"))
	require.NoError(t, err)

	clock := newClock()
	logger := slogx.Discard()

	ledger := &service.AttemptLedger{
		Store:  st,
		Logger: logger,
		Policy: service.RateLimitPolicy{MaxFailures: 5, Window: 15 * time.Minute},
		Now:    clock.Now,
	}
	notifier := &recordingNotifier{}

	return &env{
		store:  st,
		clock:  clock,
		ledger: ledger,
		devices: &service.DeviceTrustService{
			Store:  st,
			Logger: logger,
			Now:    clock.Now,
		},
		svc: &service.TwoFactorService{
			Store:     st,
			Sealer:    sealer,
			Attempts:  ledger,
			Passwords: passwords{testUser: testPassword},
			Notifier:  notifier,
			Logger:    logger,
			Issuer:    "Acme Invest",
			Window:    otpx.DefaultWindow,
			SetupTTL:  10 * time.Minute,
			Now:       clock.Now,
		},
		notifier: notifier,
	}
}

// enable runs a full setup for testUser and returns the pending setup,
// which carries the secret and the plaintext backup codes.
func (e *env) enable(t *testing.T) domain.PendingSetup {
	t.Helper()
	ctx := context.Background()

	pending, err := e.svc.BeginSetup(ctx, testUser, "jane@example.com")
	require.NoError(t, err)
	require.NoError(t, e.svc.ConfirmSetup(ctx, testUser, pending, e.code(t, pending), "test"))
	return pending
}

// code returns the current authenticator code for pending's secret.
func (e *env) code(t *testing.T, pending domain.PendingSetup) string {
	t.Helper()
	secret, err := otpx.ParseSecret(pending.Secret)
	require.NoError(t, err)
	code, err := otpx.Compute(secret, e.clock.Now())
	require.NoError(t, err)
	return code
}

// wrongCode returns a six digit code that is not valid now.
func (e *env) wrongCode(t *testing.T, pending domain.PendingSetup) string {
	t.Helper()
	secret, err := otpx.ParseSecret(pending.Secret)
	require.NoError(t, err)
	code, err := otpx.Compute(secret, e.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	if ok, _ := otpx.Validate(secret, code, e.clock.Now(), otpx.DefaultWindow); ok {
		t.Fatal("generated code unexpectedly valid")
	}
	return code
}
