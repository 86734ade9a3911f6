// Package redis keeps the two-factor failure window in Redis so that every
// instance of the service shares one count per user. The SQL attempt trail
// remains the audit record; this is only the fast path for rate limiting.
package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "twofactor:failures:"

// FailureWindow stores failures per user in a sorted set scored by unix
// milliseconds. Entries older than the window are trimmed on every write
// and the whole key expires after one idle window.
type FailureWindow struct {
	client goredis.UniversalClient
	prefix string
	window time.Duration
}

// Connect parses a redis:// URL and verifies the connection.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewFailureWindow returns a window of the given length. An empty prefix
// uses "twofactor:failures:".
func NewFailureWindow(client goredis.UniversalClient, prefix string, window time.Duration) *FailureWindow {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &FailureWindow{client: client, prefix: prefix, window: window}
}

func (f *FailureWindow) key(userID string) string { return f.prefix + userID }

// AddFailure records one failure. id keeps concurrent failures in the same
// millisecond distinct.
func (f *FailureWindow) AddFailure(ctx context.Context, userID, id string, at time.Time) error {
	key := f.key(userID)
	score := at.UnixMilli()
	cutoff := score - f.window.Milliseconds()

	_, err := f.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZAdd(ctx, key, goredis.Z{Score: float64(score), Member: id})
		p.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
		p.PExpire(ctx, key, f.window)
		return nil
	})
	return err
}

// RecentFailures counts failures strictly after since and returns the
// oldest of them.
func (f *FailureWindow) RecentFailures(ctx context.Context, userID string, since time.Time) (int, time.Time, error) {
	key := f.key(userID)
	lower := "(" + strconv.FormatInt(since.UnixMilli(), 10)

	var (
		count  *goredis.IntCmd
		oldest *goredis.ZSliceCmd
	)
	_, err := f.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		count = p.ZCount(ctx, key, lower, "+inf")
		oldest = p.ZRangeByScoreWithScores(ctx, key, &goredis.ZRangeBy{Min: lower, Max: "+inf", Count: 1})
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}

	n := int(count.Val())
	if n == 0 || len(oldest.Val()) == 0 {
		return 0, time.Time{}, nil
	}
	return n, time.UnixMilli(int64(oldest.Val()[0].Score)).UTC(), nil
}
