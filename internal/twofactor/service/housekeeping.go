package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultAttemptRetention is how long the audit trail is kept.
const DefaultAttemptRetention = 90 * 24 * time.Hour

// HousekeepingService periodically removes expired device grants and old
// attempt records, and refreshes the bearer verification keys.
type HousekeepingService struct {
	Devices   *DeviceTrustService
	Attempts  *AttemptLedger
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	// RefreshKeys is optional and runs on its own job.
	RefreshKeys         func(ctx context.Context) error
	RefreshKeysInterval time.Duration

	scheduler gocron.Scheduler
}

// NewHousekeepingService creates a housekeeping service. A zero interval
// defaults to one hour and a zero retention to DefaultAttemptRetention.
func NewHousekeepingService(devices *DeviceTrustService, attempts *AttemptLedger, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultAttemptRetention
	}
	return &HousekeepingService{
		Devices:   devices,
		Attempts:  attempts,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
	}
}

// Start schedules the jobs and runs the cleanup once immediately. It does
// not block. Call Stop to shut the scheduler down.
func (s *HousekeepingService) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLogger(s.Logger))
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(s.Cleanup),
		gocron.WithName("cleanup"),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}

	if s.RefreshKeys != nil {
		every := s.RefreshKeysInterval
		if every <= 0 {
			every = 15 * time.Minute
		}
		_, err = sched.NewJob(
			gocron.DurationJob(every),
			gocron.NewTask(s.refreshKeys),
			gocron.WithName("refresh_keys"),
			gocron.WithContext(ctx),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return err
		}
	}

	s.scheduler = sched
	sched.Start()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
	return nil
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *HousekeepingService) Stop() {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Shutdown(); err != nil {
		s.Logger.Error("housekeeping shutdown failed", "error", err)
	}
	s.Logger.Info("housekeeping service stopped")
}

// Cleanup performs one pass. Each step is independent; a failure in one
// does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	s.Logger.Debug("starting housekeeping cleanup")

	devices, err := s.Devices.PurgeExpired(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired trusted devices", "error", err)
	}

	cutoff := nowFunc(s.Attempts.Now).Add(-s.Retention)
	sctx, cancel := boundedCtx(ctx, s.Attempts.StoreTimeout)
	attempts, err := s.Attempts.Store.Attempts().PruneAttempts(sctx, cutoff)
	cancel()
	if err != nil {
		s.Logger.Error("failed to prune two-factor attempts", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"expired_devices", devices, "pruned_attempts", attempts)
}

func (s *HousekeepingService) refreshKeys(ctx context.Context) {
	if err := s.RefreshKeys(ctx); err != nil {
		s.Logger.Error("failed to refresh verification keys", "error", err)
		return
	}
	s.Logger.Debug("verification keys refreshed")
}
