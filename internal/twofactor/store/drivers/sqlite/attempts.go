package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
)

type attemptsRepo struct {
	db dbtx
}

func (r *attemptsRepo) AppendAttempt(ctx context.Context, a domain.AttemptRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO two_factor_attempts (id, user_id, method, success, client_context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Method), a.Success, a.ClientContext, toMillis(a.CreatedAt))
	return err
}

func (r *attemptsRepo) RecentFailures(ctx context.Context, userID string, since time.Time) (int, time.Time, error) {
	var (
		count  int
		oldest int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MIN(created_at), 0)
		   FROM two_factor_attempts
		  WHERE user_id = ? AND success = 0 AND created_at > ?`,
		userID, toMillis(since),
	).Scan(&count, &oldest)
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 0 {
		return 0, time.Time{}, nil
	}
	return count, fromMillis(oldest), nil
}

func (r *attemptsRepo) ListAttempts(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, method, success, client_context, created_at
		   FROM two_factor_attempts
		  WHERE user_id = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AttemptRecord
	for rows.Next() {
		var (
			a       domain.AttemptRecord
			method  string
			created int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &method, &a.Success, &a.ClientContext, &created); err != nil {
			return nil, err
		}
		a.Method = domain.AttemptMethod(method)
		a.CreatedAt = fromMillis(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *attemptsRepo) PruneAttempts(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM two_factor_attempts WHERE created_at < ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return affected(res)
}
