package sqlite

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func enable(t *testing.T, s *Store, userID string, digests []string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		if err := tx.Credentials().PutCredential(context.Background(), domain.Credential{
			UserID:       userID,
			Method:       domain.MethodAuthenticator,
			SealedSecret: []byte("sealed"),
			EnabledAt:    &now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}
		return tx.BackupCodes().ReplaceBackupCodes(context.Background(), userID, digests)
	})
	require.NoError(t, err)
}

func TestMigrations(t *testing.T) {
	s := newTestStore(t)

	v, dirty, err := s.MigrationVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, v)

	// Idempotent.
	require.NoError(t, s.ApplyMigrations())

	require.NoError(t, s.MigrateDown(0))
	v, _, err = s.MigrationVersion()
	require.NoError(t, err)
	require.EqualValues(t, 0, v)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	u := domain.User{ID: "u1", Email: "jane@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	require.Equal(t, u, got)

	dup := u
	dup.ID = "u2"
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, "u1", "h2"))
	got, err = s.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "h2", got.PasswordHash)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x"), store.ErrNotFound)
}

func TestCredentials_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.Credentials().GetCredential(ctx, "u1")
	require.NoError(t, err)
	require.False(t, c.Enabled())
	require.Empty(t, c.BackupCodes)

	enable(t, s, "u1", []string{"a", "b", "c"})

	c, err = s.Credentials().GetCredential(ctx, "u1")
	require.NoError(t, err)
	require.True(t, c.Enabled())
	require.Equal(t, []byte("sealed"), c.SealedSecret)
	require.NotNil(t, c.EnabledAt)
	require.Equal(t, []string{"a", "b", "c"}, c.BackupCodes)
	require.NoError(t, c.Validate())

	require.NoError(t, s.Credentials().DeleteCredential(ctx, "u1"))

	c, err = s.Credentials().GetCredential(ctx, "u1")
	require.NoError(t, err)
	require.False(t, c.Enabled())
	require.Empty(t, c.BackupCodes, "backup codes cascade with the credential")
}

func TestCredentials_RejectsPartialState(t *testing.T) {
	s := newTestStore(t)
	err := s.Credentials().PutCredential(context.Background(), domain.Credential{
		UserID:    "u1",
		Method:    domain.MethodAuthenticator,
		UpdatedAt: time.Now(),
	})
	require.Error(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now()
		if err := tx.Credentials().PutCredential(ctx, domain.Credential{
			UserID: "u1", Method: domain.MethodAuthenticator, SealedSecret: []byte("x"), EnabledAt: &now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := s.Credentials().GetCredential(ctx, "u1")
	require.NoError(t, err)
	require.False(t, c.Enabled())
}

func TestBackupCodes_ConsumeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	enable(t, s, "u1", []string{"a", "b"})

	ok, err := s.BackupCodes().ConsumeBackupCode(ctx, "u1", "a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.BackupCodes().ConsumeBackupCode(ctx, "u1", "a")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.BackupCodes().ConsumeBackupCode(ctx, "u2", "b")
	require.NoError(t, err)
	require.False(t, ok, "codes are scoped to their owner")

	left, err := s.BackupCodes().ListBackupCodes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, left, 1)
}

func TestBackupCodes_ConcurrentConsume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	enable(t, s, "u1", []string{"a"})

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.BackupCodes().ConsumeBackupCode(ctx, "u1", "a")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestTrustedDevices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first, err := s.TrustedDevices().UpsertTrustedDevice(ctx, domain.TrustedDevice{
		ID: "d1", UserID: "u1", Fingerprint: "fp", Label: "laptop",
		CreatedAt: now, LastUsedAt: now, TrustedUntil: now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, "d1", first.ID)

	later := now.Add(time.Minute)
	second, err := s.TrustedDevices().UpsertTrustedDevice(ctx, domain.TrustedDevice{
		ID: "d2", UserID: "u1", Fingerprint: "fp", Label: "work laptop",
		CreatedAt: later, LastUsedAt: later, TrustedUntil: later.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, "d1", second.ID, "re-trust keeps the original record")
	require.Equal(t, "work laptop", second.Label)
	require.Equal(t, now, second.CreatedAt)
	require.Equal(t, later.Add(time.Hour), second.TrustedUntil)

	_, err = s.TrustedDevices().UpsertTrustedDevice(ctx, domain.TrustedDevice{
		ID: "d3", UserID: "u2", Fingerprint: "fp",
		CreatedAt: now, LastUsedAt: now, TrustedUntil: now.Add(time.Second),
	})
	require.NoError(t, err)

	list, err := s.TrustedDevices().ListTrustedDevices(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	touched := now.Add(2 * time.Minute)
	require.NoError(t, s.TrustedDevices().TouchTrustedDevice(ctx, "d1", touched))
	got, err := s.TrustedDevices().GetTrustedDevice(ctx, "u1", "fp")
	require.NoError(t, err)
	require.Equal(t, touched, got.LastUsedAt)

	require.ErrorIs(t, s.TrustedDevices().DeleteTrustedDevice(ctx, "u2", "d1"), store.ErrNotFound)

	n, err := s.TrustedDevices().DeleteExpiredTrustedDevices(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.TrustedDevices().DeleteTrustedDevice(ctx, "u1", "d1"))
	_, err = s.TrustedDevices().GetTrustedDevice(ctx, "u1", "fp")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	add := func(id string, success bool, at time.Time) {
		require.NoError(t, s.Attempts().AppendAttempt(ctx, domain.AttemptRecord{
			ID: id, UserID: "u1", Method: domain.AttemptAuthenticator, Success: success, CreatedAt: at,
		}))
	}
	add("a1", false, base.Add(-20*time.Minute))
	add("a2", false, base.Add(-10*time.Minute))
	add("a3", true, base.Add(-9*time.Minute))
	add("a4", false, base.Add(-5*time.Minute))

	n, oldest, err := s.Attempts().RecentFailures(ctx, "u1", base.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, base.Add(-10*time.Minute), oldest)

	n, oldest, err = s.Attempts().RecentFailures(ctx, "u2", base.Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)
	require.True(t, oldest.IsZero())

	list, err := s.Attempts().ListAttempts(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a4", list[0].ID)
	require.True(t, list[1].Success)

	pruned, err := s.Attempts().PruneAttempts(ctx, base.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, pruned)
}
