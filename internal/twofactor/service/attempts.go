package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/pkg/idx"
)

// RateLimitPolicy allows MaxFailures failed attempts per user within any
// sliding Window. Successful attempts do not count.
type RateLimitPolicy struct {
	MaxFailures int
	Window      time.Duration
}

// DefaultRateLimitPolicy is five failures per fifteen minutes.
var DefaultRateLimitPolicy = RateLimitPolicy{MaxFailures: 5, Window: 15 * time.Minute}

// FailureCounter answers "how many failures since t". The store's attempt
// trail implements it; the redis driver offers a shared, faster counter.
type FailureCounter interface {
	RecentFailures(ctx context.Context, userID string, since time.Time) (int, time.Time, error)
}

// FailureRecorder is implemented by counters that are kept separately from
// the audit trail and must be told about every failure.
type FailureRecorder interface {
	AddFailure(ctx context.Context, userID, id string, at time.Time) error
}

// AttemptLedger records every verification attempt and decides whether a
// user may try again.
type AttemptLedger struct {
	Store  store.Store
	Logger *slog.Logger
	Policy RateLimitPolicy

	// Counter overrides the store as the source of failure counts.
	Counter FailureCounter

	StoreTimeout time.Duration
	Now          func() time.Time
}

func (l *AttemptLedger) policy() RateLimitPolicy {
	p := l.Policy
	if p.MaxFailures <= 0 {
		p.MaxFailures = DefaultRateLimitPolicy.MaxFailures
	}
	if p.Window <= 0 {
		p.Window = DefaultRateLimitPolicy.Window
	}
	return p
}

func (l *AttemptLedger) counter() FailureCounter {
	if l.Counter != nil {
		return l.Counter
	}
	return l.Store.Attempts()
}

// Check must be consulted before any code comparison. An error from the
// backing store denies the attempt with domain.KindStoreUnavailable.
func (l *AttemptLedger) Check(ctx context.Context, userID string) (domain.RateLimitDecision, error) {
	p := l.policy()
	now := nowFunc(l.Now)

	sctx, cancel := boundedCtx(ctx, l.StoreTimeout)
	defer cancel()

	failures, oldest, err := l.counter().RecentFailures(sctx, userID, now.Add(-p.Window))
	if err != nil {
		return domain.RateLimitDecision{Allowed: false}, unavailable("rate_limit_check", err)
	}

	if failures >= p.MaxFailures {
		retry := oldest.Add(p.Window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		zero := 0
		return domain.RateLimitDecision{Allowed: false, AttemptsRemaining: &zero, RetryAfter: retry}, nil
	}

	remaining := p.MaxFailures - failures
	return domain.RateLimitDecision{Allowed: true, AttemptsRemaining: &remaining}, nil
}

// Record appends an attempt to the audit trail. Failures to record are
// logged and swallowed: losing an audit row must not fail a login.
func (l *AttemptLedger) Record(ctx context.Context, userID string, method domain.AttemptMethod, success bool, clientContext string) {
	now := nowFunc(l.Now)
	rec := domain.AttemptRecord{
		ID:            idx.NewAt(now).String(),
		UserID:        userID,
		Method:        method,
		Success:       success,
		ClientContext: clientContext,
		CreatedAt:     now,
	}

	l.appendAttempt(ctx, rec)
	if success {
		return
	}

	// The counter gets its own deadline: a slow audit append must not stop
	// a failure from being counted.
	if fr, ok := l.Counter.(FailureRecorder); ok {
		sctx, cancel := boundedCtx(ctx, l.StoreTimeout)
		defer cancel()

		if err := fr.AddFailure(sctx, userID, rec.ID, now); err != nil {
			l.logger().ErrorContext(ctx, "failed to count two-factor failure",
				"user_id", userID, "error", err)
		}
	}
}

func (l *AttemptLedger) appendAttempt(ctx context.Context, rec domain.AttemptRecord) {
	sctx, cancel := boundedCtx(ctx, l.StoreTimeout)
	defer cancel()

	if err := l.Store.Attempts().AppendAttempt(sctx, rec); err != nil {
		l.logger().ErrorContext(ctx, "failed to record two-factor attempt",
			"user_id", rec.UserID, "method", rec.Method, "success", rec.Success, "error", err)
	}
}

// limited returns the RateLimited error for a denied decision.
func limited(op string, d domain.RateLimitDecision) error {
	return &domain.Error{Kind: domain.KindRateLimited, Op: op, Decision: &d}
}

// History returns the most recent attempts of a user, newest first.
func (l *AttemptLedger) History(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error) {
	sctx, cancel := boundedCtx(ctx, l.StoreTimeout)
	defer cancel()

	recs, err := l.Store.Attempts().ListAttempts(sctx, userID, limit)
	if err != nil {
		return nil, unavailable("attempt_history", err)
	}
	return recs, nil
}

func (l *AttemptLedger) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
