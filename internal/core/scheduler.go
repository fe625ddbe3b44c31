package core

// scheduler.go runs sync cycles on a fixed interval.
//
// Every tick performs one full rescan of the source block. Cycles never
// overlap: a tick that fires while a cycle is still running is skipped, and
// a cycle held by another process (via the CycleGuard) is logged and skipped.
// The scheduler is long-running and stops when its context is cancelled.

import (
	"context"
	"time"
)

// DefaultSyncInterval is used when SchedulerConfig.Interval is not positive.
const DefaultSyncInterval = 10 * time.Second

// SchedulerConfig holds configuration for the sync scheduler.
type SchedulerConfig struct {
	Interval   time.Duration // How often to run (default: 10s)
	RunOnStart bool          // Run one cycle before the first tick
}

// StartSyncScheduler blocks, running a cycle every cfg.Interval until ctx
// is cancelled.
func (s *Service) StartSyncScheduler(ctx context.Context, cfg SchedulerConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	s.logger.Info("sync scheduler started", "interval", interval.String(), "run_on_start", cfg.RunOnStart)

	if cfg.RunOnStart {
		s.runSyncJob(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runSyncJob(ctx)
		}
	}
}

// runSyncJob performs one cycle and logs its result.
func (s *Service) runSyncJob(ctx context.Context) {
	start := time.Now()

	report, err := s.SyncNow(ctx)
	switch {
	case IsCycleInProgress(err):
		s.logger.Info("sync job skipped", "reason", "cycle already in progress")
	case err != nil:
		msg := MapError(err)
		s.logger.Error("sync job failed",
			"error", err,
			"code", msg.Code,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	default:
		s.logger.Info("sync job completed",
			"cycle_id", report.ID,
			"inserted", report.Inserted,
			"status_updated", report.StatusUpdated,
			"failed", report.Failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
