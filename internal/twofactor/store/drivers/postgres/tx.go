package postgres

import (
	"context"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/jackc/pgx/v5"
)

type txStore struct {
	tx pgx.Tx
	// ctx outlives cancellation of the request that opened the transaction
	// so Rollback still reaches the server.
	ctx context.Context
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *txStore) Close() error               { return nil }
func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, pgx.ErrTxClosed }

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error { return pgx.ErrTxClosed }

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Users() store.Users                   { return &usersRepo{db: t.tx} }
func (t *txStore) Credentials() store.Credentials       { return &credentialsRepo{db: t.tx} }
func (t *txStore) BackupCodes() store.BackupCodes       { return &backupCodesRepo{db: t.tx} }
func (t *txStore) TrustedDevices() store.TrustedDevices { return &trustedDevicesRepo{db: t.tx} }
func (t *txStore) Attempts() store.Attempts             { return &attemptsRepo{db: t.tx} }
