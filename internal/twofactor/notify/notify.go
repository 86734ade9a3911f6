// Package notify tells users about security-relevant changes to their
// account. Delivery is best effort: a failed notification is logged and
// never undoes the change that triggered it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
)

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// LogSender writes notifications to the log. It is the default when no
// mail server is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, n domain.Notification) error {
	s.Logger.InfoContext(ctx, "security notification",
		"event", n.Event, "user_id", n.UserID, "occurred_at", n.OccurredAt)
	return nil
}

// Dispatcher sends notifications in the background so the caller never
// waits on delivery.
type Dispatcher struct {
	Sender  Sender
	Logger  *slog.Logger
	Timeout time.Duration

	wg sync.WaitGroup
}

// Notify queues n for delivery and returns immediately.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Detach from the request: it usually ends before delivery does.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		if err := d.Sender.Send(sendCtx, n); err != nil {
			d.Logger.ErrorContext(sendCtx, "failed to deliver notification",
				"event", n.Event, "user_id", n.UserID, "error", err)
		}
	}()
}

// Wait blocks until every queued notification has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
