package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) GetCredential(ctx context.Context, userID string) (domain.Credential, error) {
	var (
		c         = domain.Credential{UserID: userID}
		method    string
		enabledAt sql.NullInt64
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT method, sealed_secret, enabled_at, updated_at
		   FROM two_factor_credentials WHERE user_id = ?`, userID,
	).Scan(&method, &c.SealedSecret, &enabledAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DisabledCredential(userID), nil
	}
	if err != nil {
		return domain.Credential{}, err
	}

	c.Method = domain.Method(method)
	c.EnabledAt = fromNullMillis(enabledAt)
	c.UpdatedAt = fromMillis(updatedAt)

	codes, err := (&backupCodesRepo{db: r.db}).ListBackupCodes(ctx, userID)
	if err != nil {
		return domain.Credential{}, err
	}
	c.BackupCodes = codes
	return c, nil
}

func (r *credentialsRepo) PutCredential(ctx context.Context, c domain.Credential) error {
	var secret any
	if len(c.SealedSecret) > 0 {
		secret = c.SealedSecret
	}

	method := c.Method
	if method == "" {
		method = domain.MethodNone
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO two_factor_credentials (user_id, method, sealed_secret, enabled_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     method = excluded.method,
		     sealed_secret = excluded.sealed_secret,
		     enabled_at = excluded.enabled_at,
		     updated_at = excluded.updated_at`,
		c.UserID, string(method), secret, toNullMillis(c.EnabledAt), toMillis(c.UpdatedAt))
	return err
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM two_factor_credentials WHERE user_id = ?`, userID)
	return err
}
