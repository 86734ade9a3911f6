package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func TestAttemptLedger_DeniesAfterMaxFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for i := range 5 {
		d, err := e.ledger.Check(ctx, testUser)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 5-i, *d.AttemptsRemaining)

		e.ledger.Record(ctx, testUser, domain.AttemptAuthenticator, false, "")
		e.clock.Advance(time.Minute)
	}

	d, err := e.ledger.Check(ctx, testUser)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, *d.AttemptsRemaining)
	// Oldest failure was 5 minutes ago in a 15 minute window.
	require.Equal(t, 10*time.Minute, d.RetryAfter)

	// Sliding: once the oldest failure leaves the window one attempt opens up.
	e.clock.Advance(10 * time.Minute)
	d, err = e.ledger.Check(ctx, testUser)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, *d.AttemptsRemaining)
}

func TestAttemptLedger_SuccessDoesNotCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for range 10 {
		e.ledger.Record(ctx, testUser, domain.AttemptBackup, true, "")
	}
	d, err := e.ledger.Check(ctx, testUser)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 5, *d.AttemptsRemaining)

	hist, err := e.ledger.History(ctx, testUser, 0)
	require.NoError(t, err)
	require.Len(t, hist, 10)
}

func TestAttemptLedger_UsersAreIndependent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for range 5 {
		e.ledger.Record(ctx, "someone-else", domain.AttemptAuthenticator, false, "")
	}
	d, err := e.ledger.Check(ctx, testUser)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestAttemptLedger_StoreFailureDenies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Close())

	d, err := e.ledger.Check(ctx, testUser)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.False(t, d.Allowed)

	// Recording never panics or propagates.
	e.ledger.Record(ctx, testUser, domain.AttemptAuthenticator, false, "")
}

type memCounter struct {
	failures []time.Time
}

func (m *memCounter) RecentFailures(_ context.Context, _ string, since time.Time) (int, time.Time, error) {
	var (
		n      int
		oldest time.Time
	)
	for _, f := range m.failures {
		if f.After(since) {
			if n == 0 {
				oldest = f
			}
			n++
		}
	}
	return n, oldest, nil
}

func (m *memCounter) AddFailure(ctx context.Context, _, _ string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.failures = append(m.failures, at)
	return nil
}

func TestAttemptLedger_ExternalCounter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	counter := &memCounter{}
	e.ledger.Counter = counter

	for range 5 {
		e.ledger.Record(ctx, testUser, domain.AttemptAuthenticator, false, "")
	}
	e.ledger.Record(ctx, testUser, domain.AttemptAuthenticator, true, "")
	require.Len(t, counter.failures, 5)

	d, err := e.ledger.Check(ctx, testUser)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// The audit trail is still written.
	hist, err := e.ledger.History(ctx, testUser, 100)
	require.NoError(t, err)
	require.Len(t, hist, 6)
}

// stalledAudit never finishes an append before the deadline.
type stalledAudit struct{ store.Attempts }

func (stalledAudit) AppendAttempt(ctx context.Context, _ domain.AttemptRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

type stalledAuditStore struct{ *sqlite.Store }

func (s stalledAuditStore) Attempts() store.Attempts {
	return stalledAudit{s.Store.Attempts()}
}

func TestAttemptLedger_CountsFailureWhenAuditStalls(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	counter := &memCounter{}
	e.ledger.Store = stalledAuditStore{e.store}
	e.ledger.Counter = counter
	e.ledger.StoreTimeout = 20 * time.Millisecond

	for range 5 {
		e.ledger.Record(ctx, testUser, domain.AttemptBackup, false, "")
	}
	require.Len(t, counter.failures, 5)

	d, err := e.ledger.Check(ctx, testUser)
	require.NoError(t, err)
	require.False(t, d.Allowed)
}
