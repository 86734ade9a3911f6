package sqlite

import (
	"context"
	"fmt"
	"strings"
)

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) ListBackupCodes(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code_hash FROM backup_codes WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *backupCodesRepo) ReplaceBackupCodes(ctx context.Context, userID string, digests []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID); err != nil {
		return err
	}
	if len(digests) == 0 {
		return nil
	}

	now := toMillis(nowUTC())
	var (
		sb   strings.Builder
		args = make([]any, 0, len(digests)*4)
	)
	sb.WriteString(`INSERT INTO backup_codes (user_id, code_hash, position, created_at) VALUES `)
	for i, d := range digests {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, userID, d, i, now)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert backup codes: %w", err)
	}
	return nil
}

// ConsumeBackupCode relies on the conditional delete: only the statement
// that actually removes the row sees one affected row.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID, digest string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = ? AND code_hash = ?`, userID, digest)
	if err != nil {
		return false, err
	}
	n, err := affected(res)
	return n == 1, err
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}
