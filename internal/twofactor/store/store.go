package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it so that code running inside
// WithTx only ever sees the transaction-scoped versions.
type Store interface {
	Users() Users
	Credentials() Credentials
	BackupCodes() BackupCodes
	TrustedDevices() TrustedDevices
	Attempts() Attempts

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users backs the local primary authenticator.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	// CreateUser returns ErrAlreadyExists for a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// Credentials holds one second-factor credential row per user. The full
// credential (row plus backup codes) is written atomically by combining
// PutCredential and BackupCodes().ReplaceBackupCodes inside WithTx.
type Credentials interface {
	// GetCredential returns the credential including backup-code digests.
	// A user that never enrolled gets a disabled credential, not ErrNotFound.
	GetCredential(ctx context.Context, userID string) (domain.Credential, error)

	// PutCredential inserts or replaces the credential row.
	PutCredential(ctx context.Context, c domain.Credential) error

	// DeleteCredential removes the row. Deleting a missing row is not an error.
	DeleteCredential(ctx context.Context, userID string) error
}

// BackupCodes stores backup-code digests in issue order.
type BackupCodes interface {
	ListBackupCodes(ctx context.Context, userID string) ([]string, error)

	// ReplaceBackupCodes drops every existing digest and inserts the new set.
	// Callers run it inside WithTx.
	ReplaceBackupCodes(ctx context.Context, userID string, digests []string) error

	// ConsumeBackupCode deletes one digest and reports whether this call
	// removed it. Two concurrent calls for the same digest never both
	// return true.
	ConsumeBackupCode(ctx context.Context, userID, digest string) (bool, error)

	DeleteAllBackupCodes(ctx context.Context, userID string) error
}

// TrustedDevices stores device trust grants. Revocation is deletion.
type TrustedDevices interface {
	ListTrustedDevices(ctx context.Context, userID string) ([]domain.TrustedDevice, error)

	// GetTrustedDevice looks a device up by its fingerprint.
	GetTrustedDevice(ctx context.Context, userID, fingerprint string) (domain.TrustedDevice, error)

	// UpsertTrustedDevice creates the grant or, for a known (user,
	// fingerprint) pair, refreshes label, last use and expiry. It returns the
	// stored record, whose ID is the original one on update.
	UpsertTrustedDevice(ctx context.Context, d domain.TrustedDevice) (domain.TrustedDevice, error)

	TouchTrustedDevice(ctx context.Context, id string, at time.Time) error

	// DeleteTrustedDevice is scoped to the owner and returns ErrNotFound when
	// the id does not belong to userID.
	DeleteTrustedDevice(ctx context.Context, userID, id string) error
	DeleteAllTrustedDevices(ctx context.Context, userID string) (int, error)
	DeleteExpiredTrustedDevices(ctx context.Context, before time.Time) (int, error)
}

// Attempts is the append-only verification audit trail.
type Attempts interface {
	AppendAttempt(ctx context.Context, a domain.AttemptRecord) error

	// RecentFailures counts failed attempts strictly after since and returns
	// the time of the oldest one (zero when count is 0).
	RecentFailures(ctx context.Context, userID string, since time.Time) (int, time.Time, error)

	ListAttempts(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error)
	PruneAttempts(ctx context.Context, before time.Time) (int, error)
}
