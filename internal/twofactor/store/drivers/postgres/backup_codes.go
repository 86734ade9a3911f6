package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) ListBackupCodes(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT code_hash FROM backup_codes WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, err
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, nil
	}
	return codes, nil
}

func (r *backupCodesRepo) ReplaceBackupCodes(ctx context.Context, userID string, digests []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(digests) == 0 {
		return nil
	}

	// One statement for the whole set; unnest keeps array order in position.
	_, err := r.db.Exec(ctx,
		`INSERT INTO backup_codes (user_id, code_hash, position, created_at)
		 SELECT $1, c.code_hash, c.ord - 1, $3
		   FROM unnest($2::text[]) WITH ORDINALITY AS c(code_hash, ord)`,
		userID, digests, nowUTC())
	return err
}

func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID, digest string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM backup_codes WHERE user_id = $1 AND code_hash = $2`, userID, digest)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID)
	return err
}
