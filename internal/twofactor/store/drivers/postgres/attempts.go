package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
)

type attemptsRepo struct {
	db dbtx
}

func (r *attemptsRepo) AppendAttempt(ctx context.Context, a domain.AttemptRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO two_factor_attempts (id, user_id, method, success, client_context, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.UserID, string(a.Method), a.Success, a.ClientContext, a.CreatedAt.UTC())
	return err
}

func (r *attemptsRepo) RecentFailures(ctx context.Context, userID string, since time.Time) (int, time.Time, error) {
	var (
		count  int
		oldest *time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), MIN(created_at)
		   FROM two_factor_attempts
		  WHERE user_id = $1 AND NOT success AND created_at > $2`,
		userID, since.UTC(),
	).Scan(&count, &oldest)
	if err != nil || oldest == nil {
		return 0, time.Time{}, err
	}
	return count, oldest.UTC(), nil
}

func (r *attemptsRepo) ListAttempts(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, method, success, client_context, created_at
		   FROM two_factor_attempts
		  WHERE user_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AttemptRecord
	for rows.Next() {
		var (
			a      domain.AttemptRecord
			method string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &method, &a.Success, &a.ClientContext, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Method = domain.AttemptMethod(method)
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *attemptsRepo) PruneAttempts(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM two_factor_attempts WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
