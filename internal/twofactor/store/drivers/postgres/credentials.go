package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/jackc/pgx/v5"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) GetCredential(ctx context.Context, userID string) (domain.Credential, error) {
	var (
		c         = domain.Credential{UserID: userID}
		method    string
		enabledAt *time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT method, sealed_secret, enabled_at, updated_at
		   FROM two_factor_credentials WHERE user_id = $1`, userID,
	).Scan(&method, &c.SealedSecret, &enabledAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DisabledCredential(userID), nil
	}
	if err != nil {
		return domain.Credential{}, err
	}

	c.Method = domain.Method(method)
	c.UpdatedAt = c.UpdatedAt.UTC()
	if enabledAt != nil {
		t := enabledAt.UTC()
		c.EnabledAt = &t
	}

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

	_, err := r.db.Exec(ctx,
		`INSERT INTO two_factor_credentials (user_id, method, sealed_secret, enabled_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		     method = EXCLUDED.method,
		     sealed_secret = EXCLUDED.sealed_secret,
		     enabled_at = EXCLUDED.enabled_at,
		     updated_at = EXCLUDED.updated_at`,
		c.UserID, string(method), secret, c.EnabledAt, c.UpdatedAt.UTC())
	return err
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM two_factor_credentials WHERE user_id = $1`, userID)
	return err
}
