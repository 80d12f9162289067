package scheduler

import (
	"context"
	"time"

	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const purgeTimeout = 5 * time.Minute

// StalePurger deletes reset requests that can no longer be used.
// service.PasswordResetService satisfies it.
type StalePurger interface {
	PurgeStale(ctx context.Context) (int64, error)
}

// ResetCleanupScheduler runs password reset housekeeping on a cron schedule.
type ResetCleanupScheduler struct {
	cron     *cron.Cron
	schedule string
	purger   StalePurger
}

func NewResetCleanupScheduler(purger StalePurger, schedule string) *ResetCleanupScheduler {
	return &ResetCleanupScheduler{
		cron:     cron.New(),
		schedule: schedule,
		purger:   purger,
	}
}

// Start registers the job and starts the cron loop. An invalid schedule
// is returned and nothing is started.
func (s *ResetCleanupScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		logger.Error("Failed to add cron job for password reset cleanup", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Password reset cleanup scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// RunOnce performs a single cleanup pass.
func (s *ResetCleanupScheduler) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	logger.Info("Starting scheduled password reset cleanup")
	deleted, err := s.purger.PurgeStale(ctx)
	if err != nil {
		logger.Error("Failed to purge stale password reset requests", err)
		return 0
	}
	logger.Info("Password reset cleanup finished", map[string]interface{}{
		"deleted": deleted,
	})
	return deleted
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *ResetCleanupScheduler) Stop() {
	logger.Info("Stopping password reset cleanup scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Password reset cleanup scheduler stopped")
}
