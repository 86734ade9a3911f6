package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/jackc/pgx/v5"
)

type trustedDevicesRepo struct {
	db dbtx
}

const deviceColumns = `id, user_id, fingerprint, label, created_at, last_used_at, trusted_until`

func scanDevice(row pgx.Row) (domain.TrustedDevice, error) {
	var d domain.TrustedDevice
	if err := row.Scan(&d.ID, &d.UserID, &d.Fingerprint, &d.Label, &d.CreatedAt, &d.LastUsedAt, &d.TrustedUntil); err != nil {
		return domain.TrustedDevice{}, mapNotFound(err)
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.LastUsedAt = d.LastUsedAt.UTC()
	d.TrustedUntil = d.TrustedUntil.UTC()
	return d, nil
}

func (r *trustedDevicesRepo) ListTrustedDevices(ctx context.Context, userID string) ([]domain.TrustedDevice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+deviceColumns+` FROM trusted_devices WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrustedDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *trustedDevicesRepo) GetTrustedDevice(ctx context.Context, userID, fingerprint string) (domain.TrustedDevice, error) {
	return scanDevice(r.db.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM trusted_devices WHERE user_id = $1 AND fingerprint = $2`,
		userID, fingerprint))
}

func (r *trustedDevicesRepo) UpsertTrustedDevice(ctx context.Context, d domain.TrustedDevice) (domain.TrustedDevice, error) {
	return scanDevice(r.db.QueryRow(ctx,
		`INSERT INTO trusted_devices (`+deviceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, fingerprint) DO UPDATE SET
		     label = EXCLUDED.label,
		     last_used_at = EXCLUDED.last_used_at,
		     trusted_until = EXCLUDED.trusted_until
		 RETURNING `+deviceColumns,
		d.ID, d.UserID, d.Fingerprint, d.Label,
		d.CreatedAt.UTC(), d.LastUsedAt.UTC(), d.TrustedUntil.UTC()))
}

func (r *trustedDevicesRepo) TouchTrustedDevice(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE trusted_devices SET last_used_at = $1 WHERE id = $2`, at.UTC(), id)
	return err
}

func (r *trustedDevicesRepo) DeleteTrustedDevice(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trusted_devices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *trustedDevicesRepo) DeleteAllTrustedDevices(ctx context.Context, userID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM trusted_devices WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *trustedDevicesRepo) DeleteExpiredTrustedDevices(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM trusted_devices WHERE trusted_until <= $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
