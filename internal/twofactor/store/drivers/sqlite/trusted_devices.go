package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
)

type trustedDevicesRepo struct {
	db dbtx
}

const deviceColumns = `id, user_id, fingerprint, label, created_at, last_used_at, trusted_until`

func scanDevice(row interface{ Scan(...any) error }) (domain.TrustedDevice, error) {
	var (
		d                          domain.TrustedDevice
		createdAt, lastUsed, until int64
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.Fingerprint, &d.Label, &createdAt, &lastUsed, &until); err != nil {
		return domain.TrustedDevice{}, mapNotFound(err)
	}
	d.CreatedAt = fromMillis(createdAt)
	d.LastUsedAt = fromMillis(lastUsed)
	d.TrustedUntil = fromMillis(until)
	return d, nil
}

func (r *trustedDevicesRepo) ListTrustedDevices(ctx context.Context, userID string) ([]domain.TrustedDevice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM trusted_devices WHERE user_id = ? ORDER BY created_at, id`, userID)
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
	return scanDevice(r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM trusted_devices WHERE user_id = ? AND fingerprint = ?`,
		userID, fingerprint))
}

func (r *trustedDevicesRepo) UpsertTrustedDevice(ctx context.Context, d domain.TrustedDevice) (domain.TrustedDevice, error) {
	return scanDevice(r.db.QueryRowContext(ctx,
		`INSERT INTO trusted_devices (`+deviceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, fingerprint) DO UPDATE SET
		     label = excluded.label,
		     last_used_at = excluded.last_used_at,
		     trusted_until = excluded.trusted_until
		 RETURNING `+deviceColumns,
		d.ID, d.UserID, d.Fingerprint, d.Label,
		toMillis(d.CreatedAt), toMillis(d.LastUsedAt), toMillis(d.TrustedUntil)))
}

func (r *trustedDevicesRepo) TouchTrustedDevice(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE trusted_devices SET last_used_at = ? WHERE id = ?`, toMillis(at), id)
	return err
}

func (r *trustedDevicesRepo) DeleteTrustedDevice(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM trusted_devices WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *trustedDevicesRepo) DeleteAllTrustedDevices(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trusted_devices WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return affected(res)
}

func (r *trustedDevicesRepo) DeleteExpiredTrustedDevices(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM trusted_devices WHERE trusted_until <= ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return affected(res)
}
